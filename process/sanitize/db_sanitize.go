package sanitize

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"typingscore/pkg/account"
)

// DefaultTables are the tables cleared when none are named.
const DefaultTables = "submissions,screenshots"

// Options controls a sanitize run.
type Options struct {
	// Tables is a comma separated list of table names.
	Tables string
	DryRun bool
	// Confirm must be set for anything to be truncated.
	Confirm bool
	// Reseed recreates the roles and the administrator after truncation.
	Reseed            bool
	AdminUsername     string
	AdminPasswordHash string
}

var tableNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseTables splits and validates a comma separated table list. Invalid
// names are skipped with a warning.
func ParseTables(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !tableNameRE.MatchString(p) {
			log.Printf("warning: skipping invalid table name '%s'", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// TruncateStatement builds the TRUNCATE for already validated names.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// Run truncates the requested tables that exist. Progress is written to w.
func Run(ctx context.Context, w io.Writer, gdb *gorm.DB, opts Options) error {
	if opts.Tables == "" {
		opts.Tables = DefaultTables
	}
	var existing []string
	for _, t := range ParseTables(opts.Tables) {
		var cnt int64
		if err := gdb.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Printf("info: table %s not found, skipping", t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(w, "no requested tables present in the database; nothing to do")
		return nil
	}

	fmt.Fprintln(w, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(w, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(w, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return nil
	}
	if !opts.Confirm {
		fmt.Fprintln(w, "Destructive operation. Pass --yes to confirm execution. Aborting.")
		return nil
	}

	stmt := TruncateStatement(existing)
	log.Printf("Executing: %s", stmt)
	tctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := gdb.WithContext(tctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	log.Println("Truncate completed.")

	if opts.Reseed {
		accounts := account.New(gdb)
		if err := accounts.EnsureRoles(ctx); err != nil {
			return fmt.Errorf("reseed roles: %w", err)
		}
		if err := accounts.EnsureAdmin(ctx, opts.AdminUsername, []byte(opts.AdminPasswordHash)); err != nil {
			return fmt.Errorf("reseed administrator: %w", err)
		}
	}
	return nil
}
