package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/MrDragar/LDPR-reports-generator/internal/draft"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/validate"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to reports.db")
	last := flag.Int("last", 20, "show N most recent rows")
	version := flag.String("version", "", "show single draft version detail")
	submissions := flag.Bool("submissions", false, "list the submission log instead of draft versions")
	rollback := flag.String("rollback", "", "make the given draft version active again")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/reports.db [--last N] [--version id] [--rollback id] [--submissions] [--json]")
		os.Exit(2)
	}

	store, err := draft.NewSQLiteStore(*dbPath, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	switch {
	case *rollback != "":
		if err = store.Rollback(ctx, *rollback); err == nil {
			fmt.Printf("active draft is now %s\n", *rollback)
		}
	case *version != "":
		err = runDetailMode(ctx, store, *version, *jsonOut)
	case *submissions:
		err = runSubmissionMode(ctx, store, *last, *jsonOut)
	default:
		err = runListMode(ctx, store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Active    bool   `json:"active"`
	FullName  string `json:"full_name"`
	Errors    int    `json:"errors"`
	Bytes     int    `json:"bytes"`
	CreatedAt string `json:"created_at"`
}

func runListMode(ctx context.Context, store *draft.SQLiteStore, last int, jsonOut bool) error {
	versions, err := store.ListVersions(ctx, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no draft versions found")
		return nil
	}

	// store returns newest first, reverse for chronological
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		r, _ := report.MergeLoaded(report.Default(), v.Payload)
		rows[len(versions)-1-i] = listRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Active:    v.Active,
			FullName:  r.GeneralInfo.FullName,
			Errors:    len(validate.Validate(r, true)),
			Bytes:     len(v.Payload),
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-36s  %-6s  %-30s  %6s  %7s  %s\n", "Version", "Active", "Full name", "Errors", "Bytes", "Time")
	fmt.Printf("%-36s+-%-6s+-%-30s+-%6s+-%7s+-%s\n",
		"------------------------------------", "------", "------------------------------", "------", "-------", "--------------------")
	for _, r := range rows {
		active := ""
		if r.Active {
			active = "*"
		}
		fmt.Printf("%-36s  %-6s  %-30s  %6d  %7d  %s\n", r.VersionID, active, truncate(r.FullName, 30), r.Errors, r.Bytes, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(ctx context.Context, store *draft.SQLiteStore, id string, jsonOut bool) error {
	v, err := store.GetVersion(ctx, id)
	if err != nil {
		return err
	}
	r, err := report.MergeLoaded(report.Default(), v.Payload)
	if err != nil {
		return fmt.Errorf("decode version %s: %w", id, err)
	}
	errs := validate.Validate(r, true)
	if jsonOut {
		return printJSON(map[string]any{"version_id": v.VersionID, "parent_id": v.ParentID, "report": r, "errors": errs})
	}

	fmt.Printf("Version:  %s\n", v.VersionID)
	fmt.Printf("Parent:   %s\n", v.ParentID)
	fmt.Printf("Active:   %v\n", v.Active)
	fmt.Printf("Created:  %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Name:     %s\n", r.GeneralInfo.FullName)
	fmt.Printf("Sections: legislation=%d project_activity=%d ldpr_orders=%d\n",
		len(r.Legislation), len(r.ProjectActivity), len(r.LdprOrders))
	fmt.Printf("Errors (%d):\n", len(errs))
	for _, p := range errs.Paths() {
		fmt.Printf("  %-40s %s\n", p, errs[p])
	}
	return nil
}

// #endregion detail-mode

// #region submission-mode

func runSubmissionMode(ctx context.Context, store *draft.SQLiteStore, last int, jsonOut bool) error {
	if err := logging.Migrate(store.DB()); err != nil {
		return err
	}
	rows, err := logging.ListSubmissions(ctx, store.DB(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no submissions found")
		return nil
	}
	fmt.Printf("%-20s  %-10s  %-18s  %-30s  %s\n", "Time", "Outcome", "Stage", "Full name", "Message")
	for _, r := range rows {
		fmt.Printf("%-20s  %-10s  %-18s  %-30s  %s\n",
			r.CreatedAt.Format("2006-01-02T15:04:05Z"), r.Outcome, r.Stage, truncate(r.FullName, 30), r.Message)
	}
	return nil
}

// #endregion submission-mode

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// #endregion helpers
