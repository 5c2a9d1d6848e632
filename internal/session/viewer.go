package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned when no log file matches a session id.
var ErrNotFound = errors.New("session log not found")

// File represents a session log file on disk, plain or compacted.
type File struct {
	Path       string
	Name       string
	SessionID  string
	Size       int64
	ModTime    time.Time
	NumRecords int
	Compacted  bool
}

// List finds session log files in dir, newest first.
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading log directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "ask-") {
			continue
		}
		compacted := strings.HasSuffix(name, ".jsonl.zst")
		if !compacted && !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, name)
		n, _ := countRecords(path) //nolint:errcheck
		files = append(files, File{
			Path:       path,
			Name:       name,
			SessionID:  sessionIDFromName(name),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			NumRecords: n,
			Compacted:  compacted,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Find locates the log file for a session id in dir. A unique prefix of
// the id is enough.
func Find(dir, sessionID string) (File, error) {
	files, err := List(dir)
	if err != nil {
		return File{}, err
	}
	for _, f := range files {
		if strings.HasPrefix(f.SessionID, sessionID) || strings.HasPrefix(sessionID, f.SessionID) {
			return f, nil
		}
	}
	return File{}, fmt.Errorf("%w for %q", ErrNotFound, sessionID)
}

// sessionIDFromName extracts the short session id from
// ask-<timestamp>-<sid>.jsonl[.zst].
func sessionIDFromName(name string) string {
	name = strings.TrimSuffix(name, ".zst")
	name = strings.TrimSuffix(name, ".jsonl")
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

func countRecords(path string) (int, error) {
	r, closeFn, err := openLog(path)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	n := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// openLog opens a session log for reading, decompressing transparently
// when the file has been compacted.
func openLog(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if !strings.HasSuffix(path, ".zst") {
		return f, func() { f.Close() }, nil //nolint:errcheck
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, nil, fmt.Errorf("opening compacted log: %w", err)
	}
	return dec, func() {
		dec.Close()
		f.Close() //nolint:errcheck
	}, nil
}

// ReadRecords parses all records from a session log file.
func ReadRecords(path string) ([]Record, error) {
	r, closeFn, err := openLog(path)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	defer closeFn()

	var records []Record
	scanner := bufio.NewScanner(r)
	// Increase buffer for large result payloads.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue // skip malformed lines
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session log: %w", err)
	}
	return records, nil
}

// RenderTimeline writes a human-readable session timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, records []Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintf(w, " SESSION %s\n", records[0].SessionID)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := records[0].Timestamp
	for _, rec := range records {
		elapsed := rec.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch rec.Type {
		case RecordQuestion:
			q, _ := rec.Data["question"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ▶  Question: %s\n", ts, q)

		case RecordPlan:
			ops := planOperations(rec.Data)
			fmt.Fprintf(w, "[%s] ⚙  Turn %d: %s\n", ts, rec.Turn, strings.Join(ops, ", "))

		case RecordToolResults:
			succeeded := jsonNumber(rec.Data["succeeded"])
			failed := jsonNumber(rec.Data["failed"])
			icon := "✓"
			if failed > 0 {
				icon = "✗"
			}
			fmt.Fprintf(w, "[%s]    %s %d succeeded, %d failed\n", ts, icon, succeeded, failed)

		case RecordAnswer:
			answer, _ := rec.Data["answer"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] 🏁 Answer: %s\n", ts, truncate(answer, 120))

		case RecordPlannerError:
			msg, _ := rec.Data["message"].(string) //nolint:errcheck
			attempt := jsonNumber(rec.Data["attempt"])
			fmt.Fprintf(w, "[%s] ⚠  Planner error (attempt %d): %s\n", ts, attempt, truncate(msg, 120))

		case RecordFailure:
			kind, _ := rec.Data["kind"].(string)   //nolint:errcheck
			msg, _ := rec.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ❌ Failure [%s]: %s\n", ts, kind, msg)

		case RecordRollback:
			reason, _ := rec.Data["reason"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ↩  Rolled back open transaction (%s)\n", ts, reason)

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, rec.Type, rec.Data)
		}
	}
	fmt.Fprintln(w)
}

// planOperations lists the operation names in a JSON-decoded plan record.
func planOperations(data map[string]any) []string {
	var ops []string
	if calls, ok := data["tool_calls"].([]any); ok {
		for _, c := range calls {
			m, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if op, ok := m["operation"].(string); ok {
				ops = append(ops, op)
			}
		}
	}
	if len(ops) == 0 {
		return []string{"(no operations)"}
	}
	return ops
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts a number from a JSON-decoded interface{} (float64 or json.Number).
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}
