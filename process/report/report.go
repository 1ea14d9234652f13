package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"typingscore/models"
	"typingscore/pkg/store"
)

// RunReport prints the leaderboard (top limit users, all when limit <= 0) and,
// when userID is set, that user's stored submissions.
func RunReport(ctx context.Context, w io.Writer, db *gorm.DB, limit int, userID string) error {
	entries, err := store.New(db).Leaderboard(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tSCORE\tSPEED\tACCURACY\tMISS\tDATE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.0f\t%.1f%%\t%.0f\t%s\n",
			e.Rank, e.UserID, e.Score, e.Speed, e.Accuracy*100, e.Miss, e.CreatedAt.Format(time.DateOnly))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if userID == "" {
		return nil
	}

	var rows []models.Submission
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		return fmt.Errorf("fetch rows failed: %w", err)
	}
	var failed int64
	if err := db.WithContext(ctx).Model(&models.Screenshot{}).Where("user_id = ? AND failed = ?", userID, true).Count(&failed).Error; err != nil {
		return fmt.Errorf("count failed screenshots: %w", err)
	}
	fmt.Fprintf(w, "\nSubmissions for user=%s: %d stored, %d failed screenshots\n", userID, len(rows), failed)
	for _, r := range rows {
		fmt.Fprintf(w, "%d|%d|%.0f|%.3f|%.0f|%.0f|%s|%s\n",
			r.ID, r.Score, r.Speed, r.Accuracy, r.Miss, r.ContinuousMiss, r.ChannelID, r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
