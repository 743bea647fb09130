package processor

import (
	"testing"

	"onboard-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyDocuments_PersonalDataIncomplete(t *testing.T) {
	result := VerifyDocuments(types.Identity{Name: "RAHUL KUMAR"}, []types.DocumentIdentity{
		{DocumentID: 1, Name: "RAHUL KUMAR", DOB: "15-06-1998"},
	}, 0.85)

	assert.Equal(t, types.VerificationPending, result.Status)
	assert.Equal(t, "Personal document data incomplete", result.Error)
	assert.Empty(t, result.Comparisons)
}

func TestVerifyDocuments_NoEducationalDocuments(t *testing.T) {
	personal := types.Identity{Name: "RAHUL KUMAR", DOB: "15-06-1998"}
	result := VerifyDocuments(personal, nil, 0.85)

	assert.Equal(t, types.VerificationPending, result.Status)
	assert.Equal(t, "No educational documents found", result.Error)
	assert.Zero(t, result.TotalCount)
}

func TestVerifyDocuments_AllVerified(t *testing.T) {
	personal := types.Identity{Name: "RAHUL KUMAR SHARMA", DOB: "15-06-1998"}
	docs := []types.DocumentIdentity{
		{DocumentID: 1, Qualification: "Class 10", Name: "RAHUL KUMAR SHARMA", DOB: "15/06/1998"},
		{DocumentID: 2, Qualification: "Class 12", Name: "rahul kumar sharma", DOB: "1998-06-15"},
	}

	result := VerifyDocuments(personal, docs, 0.85)

	assert.Equal(t, types.VerificationVerified, result.Status)
	assert.Equal(t, 2, result.VerifiedCount)
	assert.Equal(t, 2, result.TotalCount)
	assert.Empty(t, result.Mismatches)
	require.Len(t, result.Comparisons, 2)
	assert.True(t, result.Comparisons[0].OverallMatch)
	assert.Equal(t, 1.0, result.Comparisons[0].NameSimilarity)
}

func TestVerifyDocuments_OneDocumentFails(t *testing.T) {
	personal := types.Identity{Name: "RAHUL KUMAR SHARMA", DOB: "15-06-1998"}
	docs := []types.DocumentIdentity{
		{DocumentID: 1, Qualification: "Class 10", Name: "RAHUL KUMAR SHARMA", DOB: "15-06-1998"},
		{DocumentID: 2, Qualification: "Class 12", Name: "AMIT VERMA", DOB: "01-01-2000"},
	}

	result := VerifyDocuments(personal, docs, 0.85)

	// 只要有一份证件不匹配，整体即失败，不给部分通过状态
	assert.Equal(t, types.VerificationFailed, result.Status)
	assert.Equal(t, 1, result.VerifiedCount)
	assert.Equal(t, 2, result.TotalCount)

	mismatches := result.MismatchesForDocument(2)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "name", mismatches[0].Field)
	assert.Contains(t, mismatches[0].Reason, "below threshold")
	assert.Equal(t, "dob", mismatches[1].Field)
	assert.Equal(t, "DOB mismatch: 01-01-2000 vs 15-06-1998", mismatches[1].Reason)

	// 通过的证件不应产生不一致记录
	assert.Empty(t, result.MismatchesForDocument(1))
}

func TestVerifyDocuments_DOBMismatchOnly(t *testing.T) {
	personal := types.Identity{Name: "PRIYA DEVI", DOB: "01-03-2000"}
	docs := []types.DocumentIdentity{
		{DocumentID: 7, Name: "PRIYA DEVI", DOB: "02-03-2000"},
	}

	result := VerifyDocuments(personal, docs, 0.85)

	assert.Equal(t, types.VerificationFailed, result.Status)
	require.Len(t, result.Comparisons, 1)
	assert.True(t, result.Comparisons[0].NameMatch)
	assert.False(t, result.Comparisons[0].DOBMatch)
	assert.False(t, result.Comparisons[0].OverallMatch)

	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "dob", result.Mismatches[0].Field)
}
