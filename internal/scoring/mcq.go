package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/aidyn-m/qazexam/internal/model"
)

// EvaluateMCQ scores an objective question. Single-choice earns full points
// iff exactly one option is chosen and it is the correct one; multi-choice
// earns full points iff the chosen set equals the non-empty correct set.
// No partial credit in either mode.
func EvaluateMCQ(questionType string, chosen, correct []uint, points uint) decimal.Decimal {
	chosenSet := toSet(chosen)
	correctSet := toSet(correct)

	full := decimal.NewFromInt(int64(points))
	switch questionType {
	case model.QuestionMCQSingle:
		if len(chosenSet) == 1 && setsEqual(chosenSet, correctSet) {
			return full
		}
	case model.QuestionMCQMulti:
		if len(correctSet) > 0 && setsEqual(chosenSet, correctSet) {
			return full
		}
	}
	return decimal.Zero
}

func toSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[uint]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
