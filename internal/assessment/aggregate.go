package assessment

import (
	"math"
	"math/big"
	"sort"

	"github.com/sells-group/privacy-assess/internal/model"
)

// Scores maps concern codes to point totals. It is used both for the
// visitor's accumulated points and for the per-code maximums.
type Scores map[model.ConcernCode]int

// ValidateInput checks that every key of scores and maxScores is a known
// concern code and that every scored code has a maximum. Keys are checked
// in sorted order so the reported key is deterministic.
func ValidateInput(t *Taxonomy, scores, maxScores Scores) error {
	for _, code := range sortedKeys(scores) {
		if !t.Known(code) {
			return errUnknownCode("scores", code)
		}
	}
	for _, code := range sortedKeys(maxScores) {
		if !t.Known(code) {
			return errUnknownCode("maxScores", code)
		}
	}
	for _, code := range sortedKeys(scores) {
		if _, ok := maxScores[code]; !ok {
			return errMissingMax(code)
		}
	}
	return nil
}

// Aggregate returns the risk-avoided percentage for category: the share of
// the category's attainable points the visitor did not accumulate, rounded
// half-up. Only scoring concerns present in scores count; a maximum with no
// matching score adds nothing to either side. A category with no attainable
// points scores 0. The result is not clamped, so inconsistent input (points
// above max) can fall outside 0-100; values beyond the int range saturate.
func Aggregate(scores, maxScores Scores, category Category) int {
	totalPoints, totalMax := new(big.Int), new(big.Int)
	for _, code := range category.ScoringConcerns {
		pts, ok := scores[code]
		if !ok {
			continue
		}
		totalPoints.Add(totalPoints, big.NewInt(int64(pts)))
		totalMax.Add(totalMax, big.NewInt(int64(maxScores[code])))
	}
	if totalMax.Sign() <= 0 {
		return 0
	}
	// round(100*(max-points)/max) half-up, as floor((200*(max-points)+max) / 2*max).
	// Arbitrary precision keeps sums of large totals from wrapping.
	n := new(big.Int).Sub(totalMax, totalPoints)
	n.Mul(n, big.NewInt(200)).Add(n, totalMax)
	q := n.Div(n, new(big.Int).Lsh(totalMax, 1))
	return saturate(q)
}

// saturate converts q to int, pinning values outside the int range.
func saturate(q *big.Int) int {
	switch {
	case q.Cmp(big.NewInt(math.MaxInt)) > 0:
		return math.MaxInt
	case q.Cmp(big.NewInt(math.MinInt)) < 0:
		return math.MinInt
	default:
		return int(q.Int64())
	}
}

func sortedKeys(s Scores) []model.ConcernCode {
	keys := make([]model.ConcernCode, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
