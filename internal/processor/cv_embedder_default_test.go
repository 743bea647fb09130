package processor

import (
	"context"
	"testing"

	"onboard-agent-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	lastTexts []string
	vectors   [][]float64
	err       error
}

func (s *stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	s.lastTexts = texts
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors, nil
}

func (s *stubEmbedder) GetDimensions() int { return 3 }

func TestBuildProfileEmbeddingText(t *testing.T) {
	profile := &types.ExperienceProfile{
		PrimarySkill:      "electrician",
		ExperienceYears:   5,
		Skills:            []string{"wiring", "motor repair"},
		Tools:             []string{"multimeter"},
		PreferredLocation: "Delhi",
		Workplaces: []types.WorkplaceEntry{
			{WorkplaceName: "Sharma Electricals", WorkLocation: "Delhi", WorkDuration: "2 years"},
			{WorkplaceName: ""},
		},
	}

	text := BuildProfileEmbeddingText("Rahul Kumar", profile, "H.No 42, Kanpur")

	expected := "Worker: Rahul Kumar\n" +
		"Primary skill: electrician\n" +
		"Experience: 5.0 years\n" +
		"Skills: wiring, motor repair\n" +
		"Tools: multimeter\n" +
		"Location: Delhi\n" +
		"Address: H.No 42, Kanpur\n" +
		"Worked at Sharma Electricals in Delhi for 2 years"
	assert.Equal(t, expected, text)
}

func TestBuildProfileEmbeddingText_SparseProfile(t *testing.T) {
	profile := &types.ExperienceProfile{
		PrimarySkill:    "welder",
		CurrentLocation: "Pune",
	}

	text := BuildProfileEmbeddingText("", profile, "")
	// 首选地点缺失时退到当前地点，空字段整行省略
	assert.Equal(t, "Primary skill: welder\nLocation: Pune", text)
}

func TestDefaultCVEmbedder_EmbedProfile(t *testing.T) {
	stub := &stubEmbedder{vectors: [][]float64{{0.1, 0.2, 0.3}}}
	embedder, err := NewDefaultCVEmbedder(stub)
	require.NoError(t, err)

	profile := &types.ExperienceProfile{PrimarySkill: "plumber"}
	vector, err := embedder.EmbedProfile(context.Background(), "Amit", profile, "")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
	require.Len(t, stub.lastTexts, 1)
	assert.Contains(t, stub.lastTexts[0], "Primary skill: plumber")
}

func TestDefaultCVEmbedder_NilEmbedder(t *testing.T) {
	_, err := NewDefaultCVEmbedder(nil)
	assert.Error(t, err)
}
