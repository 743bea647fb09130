package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMExperienceExtractor_ExtractExperience(t *testing.T) {
	mockModel := &MockLLMModel{
		mockResponse: `{
			"primary_skill": "electrician",
			"experience_years": 5,
			"skills": ["electrician", "wiring"],
			"tools": ["tester", "multimeter"],
			"current_location": "Delhi",
			"preferred_location": "Mumbai",
			"availability": "immediate",
			"workplaces": [
				{"workplace_name": "Sharma Electricals", "work_location": "Kanpur", "work_duration": "2 saal", "duration_months": 24},
				{"workplace_name": "L&T site", "work_location": "Delhi", "work_duration": "3 saal", "duration_months": 36}
			]
		}`,
	}

	extractor := NewLLMExperienceExtractor(mockModel, nil)

	profile, err := extractor.ExtractExperience(context.Background(), "Worker: Main electrician hun, 5 saal ka experience...")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "electrician", profile.PrimarySkill)
	assert.Equal(t, 5.0, profile.ExperienceYears)
	assert.Equal(t, []string{"electrician", "wiring"}, profile.Skills)
	assert.Equal(t, "Delhi", profile.CurrentLocation)
	assert.Equal(t, "Mumbai", profile.PreferredLocation)
	require.Len(t, profile.Workplaces, 2)
	assert.Equal(t, "Sharma Electricals", profile.Workplaces[0].WorkplaceName)
	assert.Equal(t, 24, profile.Workplaces[0].DurationMonths)
}

func TestLLMExperienceExtractor_PreferredLocationFallback(t *testing.T) {
	// preferred_location缺失时应回退到current_location
	mockModel := &MockLLMModel{
		mockResponse: `{"primary_skill": "plumber", "experience_years": 0, "current_location": "Patna"}`,
	}

	extractor := NewLLMExperienceExtractor(mockModel, nil)

	profile, err := extractor.ExtractExperience(context.Background(), "Worker: Plumber. Patna mein hun.")
	require.NoError(t, err)

	assert.Equal(t, "Patna", profile.PreferredLocation)
	assert.NotNil(t, profile.Skills)
	assert.NotNil(t, profile.Tools)
	assert.NotNil(t, profile.Workplaces)
	assert.Empty(t, profile.Workplaces)
}
