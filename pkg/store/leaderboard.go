package store

import (
	"context"
	"fmt"

	"typingscore/models"
)

// DefaultLeaderboardSize is the number of users shown unless all are requested.
const DefaultLeaderboardSize = 16

// LeaderboardEntry is a user's best submission and its position.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	models.Submission
}

const leaderboardSQL = `SELECT id, user_id, score, speed, accuracy, miss, continuous_miss, channel_id, created_at
FROM (
	SELECT s.*, ROW_NUMBER() OVER (PARTITION BY s.user_id ORDER BY s.score DESC, s.created_at ASC, s.id ASC) AS rn
	FROM submissions s
) ranked
WHERE rn = 1
ORDER BY score DESC, created_at ASC, id ASC`

// Leaderboard returns each user's best submission ordered by score. limit <= 0
// returns every user.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	q := leaderboardSQL
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	var rows []models.Submission
	if err := s.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %w", ErrPersistence, err)
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		out = append(out, LeaderboardEntry{Rank: i + 1, Submission: r})
	}
	return out, nil
}
