package api

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"climatelens/pkg/logging"
)

// attrPattern matches one slog text attribute: key=value or key="quoted value".
var attrPattern = regexp.MustCompile(`([\w.\-]+)=(?:"((?:[^"\\]|\\.)*)"|(\S+))`)

// tickerHidden are attributes the status ticker never shows.
var tickerHidden = map[string]bool{
	"level": true,
	"url":   true,
	"error": true,
}

const tickerMaxValue = 24

// handleLatestLog returns the last captured server log line, condensed for the status ticker.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"log": tickerLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// tickerLine turns `time=... level=INFO msg="Pipeline finished" component=pipeline run=3`
// into `09:30:00 [pipeline] Pipeline finished (run=3)`. Lines without a msg are returned as is.
func tickerLine(raw string) string {
	var (
		clock, msg, component string
		attrs                 []string
	)
	for _, m := range attrPattern.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[3]
		if m[2] != "" {
			val = strings.ReplaceAll(m[2], `\"`, `"`)
		}
		val = strings.TrimSpace(val)

		switch {
		case key == "time":
			if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case key == "msg":
			msg = val
		case key == "component":
			component = val
		case tickerHidden[key], val == "", len(val) > tickerMaxValue:
		default:
			attrs = append(attrs, key+"="+val)
		}
	}
	if msg == "" {
		return raw
	}

	var b strings.Builder
	if clock != "" {
		b.WriteString(clock + " ")
	}
	if component != "" {
		b.WriteString("[" + component + "] ")
	}
	b.WriteString(msg)
	if len(attrs) > 0 {
		sort.Strings(attrs)
		b.WriteString(" (" + strings.Join(attrs, ", ") + ")")
	}
	return b.String()
}
