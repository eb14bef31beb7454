package reminder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// ICSSink writes each reminder as an all-day iCalendar event file.
type ICSSink struct {
	dir    string
	now    func() time.Time
	logger zerolog.Logger
}

// NewICSSink constructs a sink writing .ics files into dir.
func NewICSSink(dir string, logger zerolog.Logger) *ICSSink {
	return &ICSSink{
		dir:    dir,
		now:    time.Now,
		logger: logger.With().Str("component", "reminder_ics").Logger(),
	}
}

// Name implements Sink.
func (s *ICSSink) Name() string { return "ics" }

// CreateReminder writes <customer>-<date>.ics, replacing an existing file.
func (s *ICSSink) CreateReminder(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dir == "" {
		return fmt.Errorf("ics directory not configured")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create ics dir: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.ics", slug(r.Customer), r.Date.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(renderICS(r, s.now().UTC())), 0o644); err != nil {
		return fmt.Errorf("write ics file: %w", err)
	}

	s.logger.Info().Str("customer", r.Customer).Str("path", path).Msg("reminder written (ics)")
	return nil
}

func renderICS(r Reminder, stamp time.Time) string {
	uid := r.RunID
	if uid == "" {
		uid = slug(r.Customer) + "-" + r.Date.Format("20060102")
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//callreminder//EN",
		"BEGIN:VEVENT",
		"UID:" + uid + "@callreminder",
		"DTSTAMP:" + stamp.Format("20060102T150405Z"),
		"DTSTART;VALUE=DATE:" + r.Date.Format("20060102"),
		"DTEND;VALUE=DATE:" + r.Date.AddDate(0, 0, 1).Format("20060102"),
		"SUMMARY:" + escapeText(r.Summary),
	}
	if r.Description != "" {
		lines = append(lines, "DESCRIPTION:"+escapeText(r.Description))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(foldLine(line))
		b.WriteString("\r\n")
	}
	return b.String()
}

// maxLineOctets is the content line limit of RFC 5545, excluding CRLF.
const maxLineOctets = 75

// foldLine splits a content line into CRLF+space continuations of at most
// maxLineOctets octets each, never inside a UTF-8 sequence.
func foldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// the leading space counts towards the limit
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeText(v string) string {
	return icsEscaper.Replace(v)
}

func slug(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "customer"
	}
	return out
}

var _ Sink = (*ICSSink)(nil)
