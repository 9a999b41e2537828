package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrDragar/LDPR-reports-generator/internal/artifact"
	"github.com/MrDragar/LDPR-reports-generator/internal/draft"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to reports.db")
	version := flag.String("version", "", "draft version to export (default: active)")
	outDir := flag.String("out", ".", "output directory")
	prefix := flag.String("prefix", artifact.DefaultPrefix, "file name prefix")
	xlsx := flag.Bool("xlsx", false, "write a spreadsheet instead of JSON")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: export --db path/to/reports.db [--version id] [--out dir] [--prefix p] [--xlsx]")
		os.Exit(2)
	}

	path, err := run(*dbPath, *version, *outDir, *prefix, *xlsx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", path)
}

// #endregion main

// #region export

func run(dbPath, versionID, outDir, prefix string, xlsx bool) (string, error) {
	store, err := draft.NewSQLiteStore(dbPath, 0)
	if err != nil {
		return "", err
	}
	defer store.Close()

	ctx := context.Background()
	var v draft.Version
	if versionID == "" {
		v, err = store.Active(ctx)
	} else {
		v, err = store.GetVersion(ctx, versionID)
	}
	if err != nil {
		return "", fmt.Errorf("load draft: %w", err)
	}

	r, err := report.MergeLoaded(report.Default(), v.Payload)
	if err != nil {
		return "", fmt.Errorf("decode version %s: %w", v.VersionID, err)
	}

	render := artifact.ExportJSON
	if xlsx {
		render = artifact.ExportXLSX
	}
	name, data, err := render(r, prefix, time.Now())
	if err != nil {
		return "", err
	}
	return artifact.DirSaver{Dir: outDir}.Save(filepath.Base(name), data)
}

// #endregion export
