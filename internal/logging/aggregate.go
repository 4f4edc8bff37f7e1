package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed line of inkgate.log.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	Repo      string         `json:"repo,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Step      string         `json:"step,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries. Zero-valued fields match everything; set fields
// are combined with AND.
type Filter struct {
	// Level keeps entries at or above this level.
	Level     string
	SessionID string
	Repo      string
	Operation string
	Since     time.Time
	Until     time.Time
	// MessageContains is a plain substring match on the message.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Keys lifted out of Attrs into Entry fields.
var entryKeys = map[string]bool{
	"time":       true,
	"level":      true,
	"msg":        true,
	"session_id": true,
	"repo":       true,
	"operation":  true,
	"step":       true,
}

// maxLineBytes bounds a single log line; prose never goes into the log.
const maxLineBytes = 1024 * 1024

// ReadLogs parses inkgate.log in logDir together with its rotated backups
// (plain or gzipped) and returns the entries ordered by time. Lines that are
// not JSON objects are skipped.
func ReadLogs(logDir string) ([]Entry, error) {
	current := filepath.Join(logDir, LogFileName)
	if _, err := os.Stat(current); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s in %s: %w", LogFileName, logDir, err)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	files := append(backupFiles(current), current)

	var entries []Entry
	for _, path := range files {
		fileEntries, err := readLogFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

// backupFiles lists rotated copies of path, oldest first.
func backupFiles(path string) []string {
	var found []string
	for n := 1; ; n++ {
		backup := BackupPath(path, n)
		if _, err := os.Stat(backup); err == nil {
			found = append(found, backup)
			continue
		}
		if _, err := os.Stat(backup + ".gz"); err == nil {
			found = append(found, backup+".gz")
			continue
		}
		break
	}
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found
}

func readLogFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}

	entry := Entry{
		Level:     str("level"),
		Message:   str("msg"),
		SessionID: str("session_id"),
		Repo:      str("repo"),
		Operation: str("operation"),
		Step:      str("step"),
	}
	if ts, err := time.Parse(time.RFC3339Nano, str("time")); err == nil {
		entry.Time = ts
	}
	for k, v := range raw {
		if entryKeys[k] {
			continue
		}
		if entry.Attrs == nil {
			entry.Attrs = make(map[string]any)
		}
		entry.Attrs[k] = v
	}
	return entry, nil
}

// FilterLogs returns the entries matching f.
func FilterLogs(entries []Entry, f Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.Level != "" {
		floor, okFloor := levelOrder[strings.ToUpper(f.Level)]
		got, okGot := levelOrder[e.Level]
		if okFloor && okGot && got < floor {
			return false
		}
	}
	switch {
	case f.SessionID != "" && e.SessionID != f.SessionID:
		return false
	case f.Repo != "" && e.Repo != f.Repo:
		return false
	case f.Operation != "" && e.Operation != f.Operation:
		return false
	case !f.Since.IsZero() && e.Time.Before(f.Since):
		return false
	case !f.Until.IsZero() && e.Time.After(f.Until):
		return false
	case f.MessageContains != "" && !strings.Contains(e.Message, f.MessageContains):
		return false
	}
	return true
}

// Export formats accepted by WriteEntries.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportFormats lists the formats WriteEntries understands.
func ExportFormats() []string {
	return []string{FormatText, FormatJSON, FormatCSV}
}

// WriteEntries writes entries to w as text lines, a JSON array or CSV.
func WriteEntries(w io.Writer, entries []Entry, format string) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return writeText(w, entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []Entry{}
		}
		return enc.Encode(entries)
	case FormatCSV:
		return writeCSV(w, entries)
	default:
		return fmt.Errorf("unsupported log format %q (supported: %s)", format, strings.Join(ExportFormats(), ", "))
	}
}

// writeText renders one line per entry:
// 2026-05-01 10:00:00.000 WARN  [open/admission] stale lock recovered session=... {"lock_age":"2h0m0s"}
func writeText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		var b strings.Builder
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05.000"))
		fmt.Fprintf(&b, " %-5s", e.Level)
		if scope := strings.Trim(e.Operation+"/"+e.Step, "/"); scope != "" {
			fmt.Fprintf(&b, " [%s]", scope)
		}
		b.WriteString(" " + e.Message)
		if e.SessionID != "" {
			b.WriteString(" session=" + e.SessionID)
		}
		if len(e.Attrs) > 0 {
			attrs, _ := json.Marshal(e.Attrs)
			b.WriteString(" " + string(attrs))
		}
		b.WriteString("\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("failed to write log entry: %w", err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "level", "message", "session_id", "repo", "operation", "step", "attrs"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		attrs := ""
		if len(e.Attrs) > 0 {
			if b, err := json.Marshal(e.Attrs); err == nil {
				attrs = string(b)
			}
		}
		record := []string{
			e.Time.Format(time.RFC3339Nano),
			e.Level,
			e.Message,
			e.SessionID,
			e.Repo,
			e.Operation,
			e.Step,
			attrs,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
