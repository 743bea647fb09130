package processor

import (
	"testing"

	"onboard-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanLocationForDisplay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"命中城市白名单", "main abhi delhi mein hun", "Delhi"},
		{"别名归一", "Bengaluru side", "Bangalore"},
		{"Gurugram归一到Gurgaon", "gurugram sector 14", "Gurgaon"},
		{"剔除口语填充词", "Rohtak mein", "Rohtak"},
		{"无法清洗原样返回", "gaon", "gaon"},
		{"空串", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanLocationForDisplay(tt.input))
		})
	}
}

func TestSanitizeNameForFilename(t *testing.T) {
	assert.Equal(t, "Rahul_Kumar", SanitizeNameForFilename("Rahul Kumar"))
	assert.Equal(t, "Priya_Devi_2", SanitizeNameForFilename("Priya Devi-2!"))
	assert.Equal(t, "Worker", SanitizeNameForFilename("  ##  "))
	assert.Equal(t, "Worker", SanitizeNameForFilename(""))
}

func TestRenderHTML(t *testing.T) {
	personal := types.CVPersonal{
		Name:   "Rahul Kumar Sharma",
		Mobile: "9876543210",
		DOB:    "15-06-1998",
	}
	experience := &types.ExperienceProfile{
		PrimarySkill:      "electrician",
		Skills:            []string{"wiring", "motor repair"},
		Tools:             []string{"multimeter"},
		PreferredLocation: "delhi mein",
		Workplaces: []types.WorkplaceEntry{
			{WorkplaceName: "Sharma Electricals", WorkLocation: "Delhi", WorkDuration: "2 years"},
		},
	}
	education := []types.CVEducationRow{
		{Qualification: "Class 10", Board: "CBSE", YearOfPassing: "2014", SchoolName: "DAV Public School", Marks: "78%", Verified: true},
		{Qualification: "Class 12", Board: "CBSE", YearOfPassing: "2016", Verified: false},
	}

	html, err := RenderHTML(personal, experience, 30, education)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Rahul <b>Kumar Sharma</b></h1>")
	assert.Contains(t, html, "Electrician")
	assert.Contains(t, html, "2.5 years experience")
	assert.Contains(t, html, "Mobile: 9876543210")
	assert.Contains(t, html, "Location: Delhi")
	assert.Contains(t, html, "Wiring")
	assert.Contains(t, html, "Sharma Electricals")
	assert.Contains(t, html, "DAV Public School")
	// 核验通过标记只出现一次
	assert.Equal(t, 1, countOccurrences(html, "Verified"))
}

func TestRenderHTML_RequiresName(t *testing.T) {
	_, err := RenderHTML(types.CVPersonal{}, nil, 0, nil)
	assert.Error(t, err)
}

func TestRenderHTML_LLMYearsFallback(t *testing.T) {
	personal := types.CVPersonal{Name: "Amit Verma"}
	experience := &types.ExperienceProfile{PrimarySkill: "welder", ExperienceYears: 3}

	html, err := RenderHTML(personal, experience, 0, nil)
	require.NoError(t, err)
	// 没有月数时退回LLM给出的年限
	assert.Contains(t, html, "3.0 years experience")
}

func TestRenderText(t *testing.T) {
	personal := types.CVPersonal{Name: "Rahul Kumar", Mobile: "9876543210"}
	experience := &types.ExperienceProfile{
		PrimarySkill: "plumber",
		Skills:       []string{"pipe fitting"},
		Workplaces: []types.WorkplaceEntry{
			{WorkplaceName: "City Works", WorkLocation: "Mumbai", WorkDuration: "1 year"},
		},
	}

	text := RenderText(personal, experience, 12, nil)

	assert.Contains(t, text, "Rahul Kumar\n")
	assert.Contains(t, text, "Plumber | 1.0 years experience")
	assert.Contains(t, text, "Mobile: 9876543210")
	assert.Contains(t, text, "Skills: Pipe Fitting")
	assert.Contains(t, text, "  - City Works, Mumbai (1 year)")
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
