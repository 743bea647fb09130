package processor

import (
	"fmt"
	"testing"

	"onboard-agent-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func electricianExperience() *models.WorkExperience {
	return &models.WorkExperience{
		WorkerID:             "w-1",
		PrimarySkill:         "electrician",
		ExperienceYearsFloat: 5.0,
		ExperienceYears:      5,
		Skills:               "wiring, motor repair",
		PreferredLocation:    "Delhi",
	}
}

func TestMatchJobsForWorker_FullMatch(t *testing.T) {
	jobs := []models.Job{
		{JobID: 1, Title: "Electrician", RequiredSkills: "electrician, wiring", Location: "Delhi"},
	}

	results := MatchJobsForWorker(electricianExperience(), jobs, 10)
	require.Len(t, results, 1)

	r := results[0]
	// 技能1.0*0.5 + 地点1.0*0.3 + 经验1.0*0.2
	assert.Equal(t, 1.0, r.MatchScore)
	assert.Equal(t, 1.0, r.SkillScore)
	assert.Equal(t, 1.0, r.LocationScore)
	assert.Equal(t, 1.0, r.ExperienceScore)
	assert.Equal(t, "Strong skill match (100%). Location matches preference. 5.0 years experience", r.Explanation)
}

func TestMatchJobsForWorker_NearbyCity(t *testing.T) {
	jobs := []models.Job{
		{JobID: 2, Title: "Electrician", RequiredSkills: "electrician", Location: "Noida"},
	}

	results := MatchJobsForWorker(electricianExperience(), jobs, 10)
	require.Len(t, results, 1)

	// Delhi与Noida同属一个通勤圈
	assert.Equal(t, 0.8, results[0].LocationScore)
	assert.Contains(t, results[0].Explanation, "Job is in a nearby city")
	// 1.0*0.5 + 0.8*0.3 + 1.0*0.2 = 0.94
	assert.Equal(t, 0.94, results[0].MatchScore)
}

func TestMatchJobsForWorker_UnrelatedTrade(t *testing.T) {
	jobs := []models.Job{
		{JobID: 3, Title: "Cook", RequiredSkills: "cooking, tandoor", Location: "Chennai"},
	}

	results := MatchJobsForWorker(electricianExperience(), jobs, 10)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 0.0, r.SkillScore)
	assert.Equal(t, 0.5, r.LocationScore)
	// 0*0.5 + 0.5*0.3 + 1.0*0.2 = 0.35
	assert.Equal(t, 0.35, r.MatchScore)
	assert.Contains(t, r.Explanation, "Limited skill match (0%)")
	assert.Contains(t, r.Explanation, "Location differs from preference")
}

func TestMatchJobsForWorker_EmptySkillsFallback(t *testing.T) {
	exp := &models.WorkExperience{WorkerID: "w-2", PreferredLocation: "Delhi"}
	jobs := []models.Job{
		{JobID: 4, Title: "Helper", RequiredSkills: "loading", Location: "Delhi"},
	}

	results := MatchJobsForWorker(exp, jobs, 10)
	require.Len(t, results, 1)

	r := results[0]
	// 技能缺失保底0.5，无经验保底0.5
	assert.Equal(t, 0.5, r.SkillScore)
	assert.Equal(t, 0.5, r.ExperienceScore)
	// 0.5*0.5 + 1.0*0.3 + 0.5*0.2 = 0.65
	assert.Equal(t, 0.65, r.MatchScore)
	assert.NotContains(t, r.Explanation, "years experience")
}

func TestMatchJobsForWorker_OrderAndTopN(t *testing.T) {
	var jobs []models.Job
	// 12个不相关岗位加1个强匹配岗位
	for i := 1; i <= 12; i++ {
		jobs = append(jobs, models.Job{
			JobID:          uint64(i),
			Title:          fmt.Sprintf("Job %d", i),
			RequiredSkills: "cooking",
			Location:       "Chennai",
		})
	}
	jobs = append(jobs, models.Job{JobID: 99, Title: "Electrician", RequiredSkills: "electrician, wiring", Location: "Delhi"})

	results := MatchJobsForWorker(electricianExperience(), jobs, 10)
	require.Len(t, results, 10)
	assert.Equal(t, uint(99), results[0].JobID)
	assert.Equal(t, 1.0, results[0].MatchScore)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].MatchScore, results[i-1].MatchScore)
	}
}

func TestSkillMatchScore_BidirectionalContainment(t *testing.T) {
	// 工人技能"electrical wiring"包含岗位技能"wiring"
	score := skillMatchScore([]string{"electrical wiring"}, []string{"wiring"})
	assert.Equal(t, 1.0, score)

	// 岗位技能"industrial welding"包含工人技能"welding"
	score = skillMatchScore([]string{"welding"}, []string{"industrial welding", "gas cutting"})
	assert.Equal(t, 0.5, score)
}
