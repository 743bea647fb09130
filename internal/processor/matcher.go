package processor

import "fmt"

// DefaultNameMatchThreshold 姓名相似度默认阈值
const DefaultNameMatchThreshold = 0.85

// sequenceRatio 计算两个字符串的相似度，语义对齐Python difflib的SequenceMatcher.ratio()
// 即 2*M/T，M为所有最长公共块的匹配字符总数，T为两串长度之和
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matches := matchingBlocks([]rune(a), []rune(b))
	total := len([]rune(a)) + len([]rune(b))
	return 2.0 * float64(matches) / float64(total)
}

// matchingBlocks 递归查找最长公共子串并累计匹配字符数
func matchingBlocks(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	bestI, bestJ, bestLen := longestMatch(a, b)
	if bestLen == 0 {
		return 0
	}

	return bestLen +
		matchingBlocks(a[:bestI], b[:bestJ]) +
		matchingBlocks(a[bestI+bestLen:], b[bestJ+bestLen:])
}

// longestMatch 找出a与b的最长公共连续子串的位置与长度
func longestMatch(a, b []rune) (int, int, int) {
	bestI, bestJ, bestLen := 0, 0, 0

	// lengths[j] 表示以 a[i-1]/b[j-1] 结尾的公共后缀长度
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			cur := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prev + 1
				if lengths[j] > bestLen {
					bestLen = lengths[j]
					bestI = i - bestLen
					bestJ = j - bestLen
				}
			} else {
				lengths[j] = 0
			}
			prev = cur
		}
	}

	return bestI, bestJ, bestLen
}

// MatchNames 比较两个姓名是否指向同一人
// 返回是否匹配及相似度分数；任一方为空返回(false, 0)
func MatchNames(a, b string, threshold float64) (bool, float64) {
	if threshold <= 0 {
		threshold = DefaultNameMatchThreshold
	}

	normA := NormalizeName(a)
	normB := NormalizeName(b)
	if normA == "" || normB == "" {
		return false, 0.0
	}
	if normA == normB {
		return true, 1.0
	}

	ratio := sequenceRatio(normA, normB)
	return ratio >= threshold, ratio
}

// MatchDOB 比较两个出生日期，规范化后只做精确相等
// 身份日期不允许近似容差
func MatchDOB(a, b string) (bool, string) {
	if a == "" || b == "" {
		return false, "One or both DOBs are missing"
	}

	normA := NormalizeDate(a)
	normB := NormalizeDate(b)
	if normA == normB {
		return true, ""
	}
	return false, fmt.Sprintf("DOB mismatch: %s vs %s", normA, normB)
}
