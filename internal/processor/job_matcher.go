package processor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"
)

// nearbyCityGroups 视为同一通勤圈的城市组，跨城匹配给0.8分
var nearbyCityGroups = [][]string{
	{"delhi", "gurgaon", "noida", "faridabad", "greater noida"},
	{"mumbai", "pune"},
	{"bangalore", "hyderabad"},
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// skillMatchScore 技能匹配分：双向子串包含计数除以岗位技能数
// 任一侧为空给0.5保底，上限1.0
func skillMatchScore(workerSkills []string, jobSkills []string) float64 {
	if len(workerSkills) == 0 || len(jobSkills) == 0 {
		return 0.5
	}

	matched := 0
	for _, js := range jobSkills {
		js = strings.ToLower(strings.TrimSpace(js))
		if js == "" {
			continue
		}
		for _, ws := range workerSkills {
			ws = strings.ToLower(strings.TrimSpace(ws))
			if ws == "" {
				continue
			}
			if strings.Contains(ws, js) || strings.Contains(js, ws) {
				matched++
				break
			}
		}
	}

	score := float64(matched) / float64(len(jobSkills))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// locationMatchScore 地点匹配分：同城1.0，邻近城市组0.8，其余或缺失0.5
func locationMatchScore(workerLocation, jobLocation string) float64 {
	w := strings.ToLower(strings.TrimSpace(workerLocation))
	j := strings.ToLower(strings.TrimSpace(jobLocation))
	if w == "" || j == "" {
		return 0.5
	}
	if w == j || strings.Contains(w, j) || strings.Contains(j, w) {
		return 1.0
	}

	for _, group := range nearbyCityGroups {
		wIn, jIn := false, false
		for _, city := range group {
			if strings.Contains(w, city) {
				wIn = true
			}
			if strings.Contains(j, city) {
				jIn = true
			}
		}
		if wIn && jIn {
			return 0.8
		}
	}
	return 0.5
}

// experienceMatchScore 有任何经验给满分，否则保底0.5
func experienceMatchScore(experienceYears float64) float64 {
	if experienceYears > 0 {
		return 1.0
	}
	return 0.5
}

// buildExplanation 拼接人类可读的匹配说明
func buildExplanation(skillScore, locationScore float64, experienceYears float64) string {
	var parts []string

	switch {
	case skillScore > 0.7:
		parts = append(parts, fmt.Sprintf("Strong skill match (%.0f%%)", skillScore*100))
	case skillScore > 0.3:
		parts = append(parts, fmt.Sprintf("Moderate skill match (%.0f%%)", skillScore*100))
	default:
		parts = append(parts, fmt.Sprintf("Limited skill match (%.0f%%)", skillScore*100))
	}

	switch {
	case locationScore >= 1.0:
		parts = append(parts, "Location matches preference")
	case locationScore >= 0.8:
		parts = append(parts, "Job is in a nearby city")
	default:
		parts = append(parts, "Location differs from preference")
	}

	if experienceYears > 0 {
		parts = append(parts, fmt.Sprintf("%.1f years experience", experienceYears))
	}

	return strings.Join(parts, ". ")
}

// splitSkillList 逗号分隔的技能串拆成清理后的切片
func splitSkillList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MatchJobsForWorker 用规则匹配器给全部岗位打分，返回降序前topN
// 权重：技能0.5 地点0.3 经验0.2；所有分数保留两位小数
func MatchJobsForWorker(experience *models.WorkExperience, jobs []models.Job, topN int) []types.JobMatchResult {
	if topN <= 0 {
		topN = 10
	}

	workerSkills := splitSkillList(experience.Skills)
	if experience.PrimarySkill != "" {
		workerSkills = append(workerSkills, experience.PrimarySkill)
	}
	workerLocation := experience.PreferredLocation
	if workerLocation == "" {
		workerLocation = experience.CurrentLocation
	}
	experienceYears := experience.ExperienceYearsFloat
	if experienceYears == 0 && experience.ExperienceYears > 0 {
		experienceYears = float64(experience.ExperienceYears)
	}

	results := make([]types.JobMatchResult, 0, len(jobs))
	for _, job := range jobs {
		skillScore := skillMatchScore(workerSkills, splitSkillList(job.RequiredSkills))
		locationScore := locationMatchScore(workerLocation, job.Location)
		expScore := experienceMatchScore(experienceYears)

		total := skillScore*0.5 + locationScore*0.3 + expScore*0.2

		results = append(results, types.JobMatchResult{
			JobID:           uint(job.JobID),
			Title:           job.Title,
			Location:        job.Location,
			MatchScore:      round2(total),
			Explanation:     buildExplanation(skillScore, locationScore, experienceYears),
			SkillScore:      round2(skillScore),
			LocationScore:   round2(locationScore),
			ExperienceScore: round2(expScore),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	if len(results) > topN {
		results = results[:topN]
	}
	return results
}
