package webapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/dbwizard/dbwizard/internal/session"
)

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Session %s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
code, pre { background: #f4f4f4; border-radius: 4px; }
pre { padding: 0.75rem; overflow-x: auto; }
code { padding: 0.1rem 0.3rem; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #555; }
</style>
</head>
<body>
%s
</body>
</html>
`

// SessionMarkdown renders a session audit trail as a markdown report.
// Records are expected in their JSON-decoded shape, as read from disk.
func SessionMarkdown(sessionID string, records []session.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", sessionID)

	if len(records) == 0 {
		b.WriteString("No records.\n")
		return b.String()
	}

	for _, rec := range records {
		switch rec.Type {
		case session.RecordQuestion:
			fmt.Fprintf(&b, "**Question:** %s\n\n", dataString(rec, "question"))

		case session.RecordPlan:
			fmt.Fprintf(&b, "## Step %d\n\n", rec.Turn)
			calls, _ := rec.Data["tool_calls"].([]any) //nolint:errcheck
			for _, c := range calls {
				m, ok := c.(map[string]any)
				if !ok {
					continue
				}
				op, _ := m["operation"].(string) //nolint:errcheck
				fmt.Fprintf(&b, "- `%s`", op)
				if args, ok := m["arguments"].(map[string]any); ok && len(args) > 0 {
					if enc, err := json.Marshal(args); err == nil {
						fmt.Fprintf(&b, " with `%s`", enc)
					}
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")

		case session.RecordToolResults:
			succeeded, _ := rec.Data["succeeded"].(float64) //nolint:errcheck
			failed, _ := rec.Data["failed"].(float64)       //nolint:errcheck
			fmt.Fprintf(&b, "%d succeeded, %d failed:\n\n", int(succeeded), int(failed))
			results, _ := rec.Data["results"].([]any) //nolint:errcheck
			for _, r := range results {
				m, ok := r.(map[string]any)
				if !ok {
					continue
				}
				op, _ := m["operation"].(string) //nolint:errcheck
				if success, _ := m["success"].(bool); success { //nolint:errcheck
					msg, _ := m["message"].(string) //nolint:errcheck
					fmt.Fprintf(&b, "- `%s`: %s\n", op, msg)
					continue
				}
				kind, message := "", ""
				if e, ok := m["error"].(map[string]any); ok {
					kind, _ = e["kind"].(string)       //nolint:errcheck
					message, _ = e["message"].(string) //nolint:errcheck
				}
				fmt.Fprintf(&b, "- `%s` failed (%s): %s\n", op, kind, message)
			}
			b.WriteString("\n")

		case session.RecordAnswer:
			fmt.Fprintf(&b, "## Answer\n\n%s\n\n", dataString(rec, "answer"))

		case session.RecordPlannerError:
			fmt.Fprintf(&b, "> Engine error, retried: %s\n\n", dataString(rec, "message"))

		case session.RecordFailure:
			fmt.Fprintf(&b, "## Failed: %s\n\n%s\n\n", dataString(rec, "kind"), dataString(rec, "message"))

		case session.RecordRollback:
			fmt.Fprintf(&b, "> Open transaction rolled back: %s\n\n", dataString(rec, "reason"))
		}
	}

	return b.String()
}

// RenderSessionHTML converts the markdown report to a standalone HTML page.
func RenderSessionHTML(sessionID string, records []session.Record) ([]byte, error) {
	md := SessionMarkdown(sessionID, records)

	var body bytes.Buffer
	if err := goldmark.New().Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("rendering session report: %w", err)
	}

	page := fmt.Sprintf(htmlShell, html.EscapeString(sessionID), body.String())
	return []byte(page), nil
}

func dataString(rec session.Record, key string) string {
	s, _ := rec.Data[key].(string) //nolint:errcheck
	return s
}
