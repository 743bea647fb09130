package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatScript(t *testing.T) {
	assert.Equal(t, 6, ChatQuestionCount())

	first, ok := ChatQuestionAt(0)
	require.True(t, ok)
	assert.Equal(t, "consent", first.Key)
	assert.Contains(t, first.Text, "Shall we start?")

	last, ok := ChatQuestionAt(ChatQuestionCount() - 1)
	require.True(t, ok)
	assert.Equal(t, "preferred_location", last.Key)

	_, ok = ChatQuestionAt(ChatQuestionCount())
	assert.False(t, ok)
	_, ok = ChatQuestionAt(-1)
	assert.False(t, ok)
}

func TestIsDeclinedConsent(t *testing.T) {
	declined := []string{"no", "No", "NAHI", "nhi", "nahin", "no, thanks", "Nahi bhai"}
	for _, answer := range declined {
		assert.True(t, IsDeclinedConsent(answer), "answer %q should decline", answer)
	}

	accepted := []string{"yes", "haan", "ok", "", "north india", "nothing to lose, start"}
	for _, answer := range accepted {
		assert.False(t, IsDeclinedConsent(answer), "answer %q should not decline", answer)
	}
}

func TestConversationTranscript(t *testing.T) {
	turns := []ConversationTurn{
		{Question: "What is your main trade?", Answer: "Electrician"},
		{Question: "How many years of experience?", Answer: "5 saal"},
	}

	transcript := ConversationTranscript(turns)
	expected := "Agent: What is your main trade?\nWorker: Electrician\n" +
		"Agent: How many years of experience?\nWorker: 5 saal\n"
	assert.Equal(t, expected, transcript)

	assert.Empty(t, ConversationTranscript(nil))
}
