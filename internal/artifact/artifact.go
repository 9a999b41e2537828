// Package artifact produces the files a user takes away: the JSON export, a
// spreadsheet export and the rendered document fetched from the report
// service.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/MrDragar/LDPR-reports-generator/internal/normalize"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// DefaultPrefix starts every file name unless configured otherwise.
const DefaultPrefix = "ldpr_report"

// #region file-name
// FileName builds "{prefix}_{name}_{YYYY-MM-DD}.{ext}" where name is the
// lower-cased full name with whitespace and path-hostile characters replaced
// by underscores. A blank name becomes "deputy". The date is taken in UTC.
func FileName(prefix, fullName string, date time.Time, ext string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name := strings.TrimSpace(fullName)
	if name == "" {
		name = "deputy"
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, sanitize(name), date.UTC().Format("2006-01-02"), ext)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(`/\?%*:|"<>`, r) {
			return '_'
		}
		return r
	}, strings.ToLower(name))
}
// #endregion file-name

// #region saver
// Saver delivers a finished file somewhere the user can reach it and returns
// where it ended up.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// DirSaver writes files into a download directory, creating it on demand.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
// #endregion saver

// #region export-json
// ExportJSON renders the normalized report as two-space indented JSON and
// names the file after the representative.
func ExportJSON(r report.Report, prefix string, now time.Time) (string, []byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalize.Report(r)); err != nil {
		return "", nil, fmt.Errorf("encode export: %w", err)
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	return FileName(prefix, r.FullNameOrDefault(), now, "json"), data, nil
}
// #endregion export-json
