// Package reciprocity measures how evenly two parties participate in a conversation.
package reciprocity

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
)

// Metrics is the per-role participation summary.
type Metrics struct {
	QuestionsBySelf   int     `json:"questions_by_self"`
	QuestionsByOther  int     `json:"questions_by_other"`
	InfoSharedBySelf  int     `json:"info_shared_by_self"`
	InfoSharedByOther int     `json:"info_shared_by_other"`
	AvgLenSelf        float64 `json:"avg_len_self"`
	AvgLenOther       float64 `json:"avg_len_other"`
	BalanceScore      int     `json:"balance_score"`
}

var disclosurePattern = regexp.MustCompile(`(?i)\b(?:i am|i'm|im|i was|i have|i've|i had|i live|i work|i grew up|i feel|i felt|i love|i like|i hate|i used to|my)\b`)

// Discloses reports whether content reads as the author sharing something about themselves.
func Discloses(content string) bool {
	return disclosurePattern.MatchString(content)
}

// Calculate computes participation metrics. It never fails and has no side effects.
func Calculate(msgs []conversation.Message) Metrics {
	var (
		m                     Metrics
		lenSelf, lenOther     int
		countSelf, countOther int
	)

	for _, msg := range msgs {
		question := strings.Contains(msg.Content, "?")
		disclosure := Discloses(msg.Content)
		n := utf8.RuneCountInString(msg.Content)

		switch msg.Role {
		case conversation.RoleSelf:
			countSelf++
			lenSelf += n
			if question {
				m.QuestionsBySelf++
			}
			if disclosure {
				m.InfoSharedBySelf++
			}
		case conversation.RoleOther:
			countOther++
			lenOther += n
			if question {
				m.QuestionsByOther++
			}
			if disclosure {
				m.InfoSharedByOther++
			}
		}
	}

	m.AvgLenSelf = float64(lenSelf) / float64(max(countSelf, 1))
	m.AvgLenOther = float64(lenOther) / float64(max(countOther, 1))

	deviations := []float64{
		deviation(float64(m.QuestionsBySelf), float64(m.QuestionsByOther)),
		deviation(float64(m.InfoSharedBySelf), float64(m.InfoSharedByOther)),
		deviation(m.AvgLenSelf, m.AvgLenOther),
	}
	var sum float64
	for _, d := range deviations {
		sum += d
	}
	m.BalanceScore = clamp(int(math.Round(100-sum/float64(len(deviations)))), 0, 100)

	return m
}

// deviation is |50 - 100*self/(self+other)|. Two zero counts are an even split.
func deviation(self, other float64) float64 {
	total := self + other
	if total == 0 {
		return 0
	}
	return math.Abs(50 - 100*self/total)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
