package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"dronenav/pkg/logging"
)

// logRegex captures key=value and key="value with spaces" pairs of a slog text record.
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last captured log line.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// handleLogTail returns up to ?n= recent formatted lines, oldest first.
func handleLogTail(w http.ResponseWriter, r *http.Request) {
	n := 20
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	lines := logging.GlobalLogCapture.Lines(n)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, formatLogLine(l))
	}
	writeJSON(w, map[string][]string{"lines": out})
}

// maxParamLen drops attributes whose value is too long for the status line.
const maxParamLen = 20

type logLine struct {
	clock  string
	level  string
	msg    string
	params []string
}

func parseLogLine(raw string) (logLine, bool) {
	var l logLine
	for _, m := range logRegex.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				l.clock = t.Format("15:04:05")
			}
		case "level":
			l.level = val
		case "msg":
			l.msg = val
		case "source":
		default:
			if len(val) <= maxParamLen {
				l.params = append(l.params, key+"="+val)
			}
		}
	}
	if l.msg == "" {
		return l, false
	}
	sort.Strings(l.params)
	return l, true
}

// formatLogLine renders a slog text record as
// "HH:MM:SS [LEVEL ]msg (k=v, ...)". Only WARN and ERROR show their level.
// Lines that are not slog records are returned unchanged.
func formatLogLine(raw string) string {
	l, ok := parseLogLine(raw)
	if !ok {
		return raw
	}

	var b strings.Builder
	if l.clock != "" {
		b.WriteString(l.clock)
		b.WriteByte(' ')
	}
	if l.level == "WARN" || l.level == "ERROR" {
		b.WriteString(l.level)
		b.WriteByte(' ')
	}
	b.WriteString(l.msg)
	if len(l.params) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(l.params, ", "))
	}
	return b.String()
}
