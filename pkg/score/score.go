// Package score holds the formula that turns a typing result into a
// leaderboard score.
package score

import "math"

// Calculate returns round(speed * accuracy). speed is the number of characters
// typed and accuracy is in [0,1]. The mistype counters are part of the
// signature so stored rows can be rescored when the formula starts using them;
// the current formula ignores them.
func Calculate(speed, accuracy, miss, continuousMiss float64) int64 {
	_, _ = miss, continuousMiss
	return int64(math.Round(speed * accuracy))
}
