package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchNames(t *testing.T) {
	t.Run("完全相同", func(t *testing.T) {
		matched, score := MatchNames("RAHUL KUMAR", "RAHUL KUMAR", 0.85)
		assert.True(t, matched)
		assert.Equal(t, 1.0, score)
	})

	t.Run("大小写与噪声不影响", func(t *testing.T) {
		matched, score := MatchNames("rahul kumar", "RAHUL | KUMAR.", 0.85)
		assert.True(t, matched)
		assert.Equal(t, 1.0, score)
	})

	t.Run("轻微OCR差异仍然匹配", func(t *testing.T) {
		// "RAHUL KUMAR" vs "RAHUL KUMARR": 匹配11字符，总长23，比率约0.957
		matched, score := MatchNames("RAHUL KUMAR", "RAHUL KUMARR", 0.85)
		assert.True(t, matched)
		assert.InDelta(t, 0.957, score, 0.001)
	})

	t.Run("缺少中间名低于阈值", func(t *testing.T) {
		// "RAHUL KUMAR SHARMA" vs "RAHUL SHARMA": 匹配12字符，总长30，比率0.8
		matched, score := MatchNames("RAHUL KUMAR SHARMA", "RAHUL SHARMA", 0.85)
		assert.False(t, matched)
		assert.InDelta(t, 0.8, score, 0.001)
	})

	t.Run("降低阈值后通过", func(t *testing.T) {
		matched, _ := MatchNames("RAHUL KUMAR SHARMA", "RAHUL SHARMA", 0.75)
		assert.True(t, matched)
	})

	t.Run("任一方为空不匹配", func(t *testing.T) {
		matched, score := MatchNames("", "RAHUL KUMAR", 0.85)
		assert.False(t, matched)
		assert.Equal(t, 0.0, score)

		matched, score = MatchNames("RAHUL KUMAR", "###", 0.85)
		assert.False(t, matched)
		assert.Equal(t, 0.0, score)
	})

	t.Run("非法阈值回落到默认值", func(t *testing.T) {
		matched, _ := MatchNames("RAHUL KUMAR SHARMA", "RAHUL SHARMA", 0)
		assert.False(t, matched)
	})
}

func TestMatchDOB(t *testing.T) {
	t.Run("不同分隔符规范化后相等", func(t *testing.T) {
		matched, reason := MatchDOB("15/06/1998", "15-06-1998")
		assert.True(t, matched)
		assert.Empty(t, reason)
	})

	t.Run("ISO格式与日月年对齐", func(t *testing.T) {
		matched, _ := MatchDOB("1998-06-15", "15.06.1998")
		assert.True(t, matched)
	})

	t.Run("日期不同不允许容差", func(t *testing.T) {
		matched, reason := MatchDOB("15/06/1998", "16/06/1998")
		assert.False(t, matched)
		assert.Equal(t, "DOB mismatch: 15-06-1998 vs 16-06-1998", reason)
	})

	t.Run("缺失日期", func(t *testing.T) {
		matched, reason := MatchDOB("", "15/06/1998")
		assert.False(t, matched)
		assert.Equal(t, "One or both DOBs are missing", reason)
	})
}
