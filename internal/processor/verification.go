package processor

import (
	"fmt"
	"math"

	"onboard-agent-go/internal/types"
)

// VerifyDocuments 将工人的所有学历证件与个人证件做身份核验
// 纯函数，不产生任何副作用，持久化由调用方在单个事务中完成
func VerifyDocuments(personal types.Identity, docs []types.DocumentIdentity, threshold float64) types.VerificationResult {
	if threshold <= 0 {
		threshold = DefaultNameMatchThreshold
	}

	result := types.VerificationResult{
		Status:     types.VerificationPending,
		TotalCount: len(docs),
	}

	// 个人证件信息不全时整体挂起
	if personal.Name == "" || personal.DOB == "" {
		result.Error = "Personal document data incomplete"
		return result
	}

	if len(docs) == 0 {
		result.Error = "No educational documents found"
		return result
	}

	allMatch := true
	for _, doc := range docs {
		nameMatch, similarity := MatchNames(doc.Name, personal.Name, threshold)
		similarity = math.Round(similarity*1000) / 1000
		dobMatch, dobReason := MatchDOB(doc.DOB, personal.DOB)
		overall := nameMatch && dobMatch

		result.Comparisons = append(result.Comparisons, types.ComparisonRecord{
			DocumentID:     doc.DocumentID,
			Qualification:  doc.Qualification,
			NameMatch:      nameMatch,
			NameSimilarity: similarity,
			DOBMatch:       dobMatch,
			OverallMatch:   overall,
		})

		if !nameMatch {
			result.Mismatches = append(result.Mismatches, types.MismatchRecord{
				DocumentID:    doc.DocumentID,
				Field:         "name",
				DocumentValue: doc.Name,
				PersonalValue: personal.Name,
				Reason:        fmt.Sprintf("Name similarity %.1f%% below threshold", similarity*100),
			})
		}
		if !dobMatch {
			result.Mismatches = append(result.Mismatches, types.MismatchRecord{
				DocumentID:    doc.DocumentID,
				Field:         "dob",
				DocumentValue: doc.DOB,
				PersonalValue: personal.DOB,
				Reason:        dobReason,
			})
		}

		if overall {
			result.VerifiedCount++
		} else {
			allMatch = false
		}
	}

	// 全部匹配才算通过，存在证件时不给部分通过状态
	if allMatch {
		result.Status = types.VerificationVerified
	} else {
		result.Status = types.VerificationFailed
	}
	return result
}
