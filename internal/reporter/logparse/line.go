// Package logparse turns per-service log files into per-file reports.
package logparse

import (
	"regexp"
	"strings"
	"time"
)

const (
	// TimestampLayout is the layout of the bracketed prefix every log line starts with.
	TimestampLayout = "2006-01-02 15:04:05"

	// MaskChar replaces every odd-positioned character of an email local part.
	MaskChar = '*'

	timestampStart = 1
	timestampEnd   = timestampStart + len(TimestampLayout)
)

// emailPattern captures the local part and domain separately. The local part
// is the maximal word run directly before '@'.
var emailPattern = regexp.MustCompile(`(\w+)@(\w+\.\w{2,})`)

// Entry is the event carried by one successfully parsed log line.
type Entry struct {
	Timestamp time.Time
	Category  string
}

// MaskLocalPart keeps characters at even positions and masks the odd ones.
func MaskLocalPart(local string) string {
	masked := []rune(local)
	for i := range masked {
		if i%2 == 1 {
			masked[i] = MaskChar
		}
	}
	return string(masked)
}

// MaskEmails redacts the local part of every email address in line. Each
// match is masked in place, so one address never affects another.
func MaskEmails(line string) string {
	return emailPattern.ReplaceAllStringFunc(line, func(address string) string {
		local, domain, _ := strings.Cut(address, "@")
		return MaskLocalPart(local) + "@" + domain
	})
}

// ParseLine masks emails in raw and then extracts the timestamp and category.
// The boolean is false when the line carries no event.
func ParseLine(raw string) (Entry, bool) {
	line := MaskEmails(strings.TrimSpace(raw))
	if len(line) < timestampEnd {
		return Entry{}, false
	}

	ts, err := time.Parse(TimestampLayout, line[timestampStart:timestampEnd])
	if err != nil {
		return Entry{}, false
	}

	return Entry{Timestamp: ts, Category: extractCategory(line)}, true
}

// extractCategory returns the label between the first ']' and the next one.
func extractCategory(line string) string {
	idx := strings.IndexByte(line, ']')
	if idx < 0 {
		return ""
	}
	rest := line[idx+1:]
	if end := strings.IndexByte(rest, ']'); end >= 0 {
		rest = rest[:end]
	}
	return strings.Trim(rest, "[] \t")
}
