package processor

import (
	"io"
	"log"
	"testing"

	"onboard-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestTotalExperienceMonths(t *testing.T) {
	discard := log.New(io.Discard, "", 0)

	t.Run("小数年份时长文本", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "ABC Constructions", WorkDuration: "2.5 years"},
		}, discard)
		assert.Equal(t, 30, months)
	})

	t.Run("年月混合缩写", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "XYZ Motors", WorkDuration: "1 yr 6 mon"},
		}, discard)
		assert.Equal(t, 18, months)
	})

	t.Run("裸数字无单位不计入", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "Unknown", WorkDuration: "7"},
		}, discard)
		assert.Equal(t, 0, months)
	})

	t.Run("时长解析失败退到显式月数", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "Sharma Electricals", WorkDuration: "kaafi time", DurationMonths: 14},
		}, discard)
		assert.Equal(t, 14, months)
	})

	t.Run("起止日期计算自然月差", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "Metro Project", StartDate: "2020-01", EndDate: "2021-07"},
		}, discard)
		assert.Equal(t, 18, months)
	})

	t.Run("倒置的起止日期归零", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "Odd Entry", StartDate: "2022-06", EndDate: "2021-01"},
		}, discard)
		assert.Equal(t, 0, months)
	})

	t.Run("多条经历累加且坏条目不中断", func(t *testing.T) {
		months := TotalExperienceMonths([]types.WorkplaceEntry{
			{WorkplaceName: "A", WorkDuration: "2 years"},
			{WorkplaceName: "B", WorkDuration: "???"},
			{WorkplaceName: "C", DurationMonths: 6},
		}, discard)
		assert.Equal(t, 30, months)
	})

	t.Run("空列表", func(t *testing.T) {
		assert.Equal(t, 0, TotalExperienceMonths(nil, discard))
	})
}

func TestExperienceYearsConversion(t *testing.T) {
	// 143个月：浮点舍入到11.9，整年截断到11
	assert.Equal(t, 11.9, ExperienceYearsFloat(143))
	assert.Equal(t, 11, ExperienceYearsInt(143))

	assert.Equal(t, 12.0, ExperienceYearsFloat(144))
	assert.Equal(t, 12, ExperienceYearsInt(144))

	assert.Equal(t, 2.5, ExperienceYearsFloat(30))
	assert.Equal(t, 2, ExperienceYearsInt(30))

	assert.Equal(t, 0.0, ExperienceYearsFloat(0))
	assert.Equal(t, 0, ExperienceYearsInt(0))
}

func TestMergeSkills(t *testing.T) {
	t.Run("技能与工具合并去重", func(t *testing.T) {
		merged := MergeSkills(
			[]string{"wiring", "Motor Repair", "wiring"},
			[]string{"Multimeter", "motor repair", "drill machine"},
		)
		assert.Equal(t, "wiring, Motor Repair, Multimeter, drill machine", merged)
	})

	t.Run("空白项被剔除", func(t *testing.T) {
		merged := MergeSkills([]string{" ", "welding"}, []string{""})
		assert.Equal(t, "welding", merged)
	})

	t.Run("全空", func(t *testing.T) {
		assert.Equal(t, "", MergeSkills(nil, nil))
	})
}
