package processor

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"onboard-agent-go/internal/types"
)

var (
	durationYearsRe  = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:years?|yrs?|y)\b`)
	durationMonthsRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:months?|mons?|m)\b`)
	dateYearMonthRe  = regexp.MustCompile(`^(\d{4})-(\d{1,2})(?:-\d{1,2})?$`)
)

// parseDurationText 解析自由文本时长，如 "2.5 years"、"1 yr 6 mon"
// 无法识别时返回0
func parseDurationText(text string) int {
	months := 0
	if m := durationYearsRe.FindStringSubmatch(text); m != nil {
		if years, err := strconv.ParseFloat(m[1], 64); err == nil {
			months += int(years * 12)
		}
	}
	if m := durationMonthsRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			months += int(v)
		}
	}
	return months
}

// monthsBetween 计算两个 YYYY-MM 或 YYYY-MM-DD 之间的自然月差，负值归零
func monthsBetween(start, end string) (int, bool) {
	sm := dateYearMonthRe.FindStringSubmatch(strings.TrimSpace(start))
	em := dateYearMonthRe.FindStringSubmatch(strings.TrimSpace(end))
	if sm == nil || em == nil {
		return 0, false
	}

	sy, _ := strconv.Atoi(sm[1])
	sMonth, _ := strconv.Atoi(sm[2])
	ey, _ := strconv.Atoi(em[1])
	eMonth, _ := strconv.Atoi(em[2])

	months := (ey-sy)*12 + (eMonth - sMonth)
	if months < 0 {
		months = 0
	}
	return months, true
}

// TotalExperienceMonths 汇总所有工作经历的总月数
// 每条经历按优先级取第一个可用来源：时长文本 > 显式月数 > 起止日期
// 解析失败的条目记日志并计0，不中断整体汇总
func TotalExperienceMonths(workplaces []types.WorkplaceEntry, logger *log.Logger) int {
	total := 0
	for _, wp := range workplaces {
		if wp.WorkDuration != "" {
			if months := parseDurationText(wp.WorkDuration); months > 0 {
				total += months
				continue
			}
		}
		if wp.DurationMonths > 0 {
			total += wp.DurationMonths
			continue
		}
		if wp.StartDate != "" && wp.EndDate != "" {
			if months, ok := monthsBetween(wp.StartDate, wp.EndDate); ok {
				total += months
				continue
			}
		}
		if logger != nil && (wp.WorkDuration != "" || wp.StartDate != "" || wp.EndDate != "") {
			logger.Printf("无法解析工作经历时长: workplace=%s duration=%q start=%q end=%q",
				wp.WorkplaceName, wp.WorkDuration, wp.StartDate, wp.EndDate)
		}
	}
	return total
}

// ExperienceYearsFloat 月数换算为年，保留一位小数
func ExperienceYearsFloat(months int) float64 {
	return math.Round(float64(months)/12*10) / 10
}

// ExperienceYearsInt 月数换算为整年，截断取整
// 注意与浮点值独立计算：143个月是11.9年/11年，但近12年的浮点舍入与整除可能不一致
func ExperienceYearsInt(months int) int {
	return months / 12
}

// MergeSkills 合并技能与工具列表为去重后的逗号分隔存储格式
func MergeSkills(skills, tools []string) string {
	seen := make(map[string]struct{})
	var merged []string
	for _, s := range append(append([]string{}, skills...), tools...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, s)
	}
	return strings.Join(merged, ", ")
}
