package calendar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//smartsched test//EN
BEGIN:VEVENT
UID:evt-1
DTSTAMP:20250101T000000Z
DTSTART:20250106T090000Z
DTEND:20250106T100000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:evt-2
DTSTAMP:20250101T000000Z
DTSTART:20250301T090000Z
DTEND:20250301T100000Z
SUMMARY:Far future
END:VEVENT
END:VCALENDAR
`

func TestImportFiltersToWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.ics")
	// The iCalendar wire format is CRLF-delimited.
	data := strings.ReplaceAll(sampleICS, "\n", "\r\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	windowStart := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 14)

	intervals, err := Import(context.Background(), path, windowStart, windowEnd)
	if err != nil {
		t.Fatal(err)
	}
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	iv := intervals[0]
	if iv.Title != "Standup" {
		t.Errorf("title = %q", iv.Title)
	}
	if !iv.Start.Equal(time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)) || !iv.End.After(iv.Start) {
		t.Errorf("interval = %s–%s", iv.Start, iv.End)
	}
}

func TestImportMissingFile(t *testing.T) {
	_, err := Import(context.Background(), filepath.Join(t.TempDir(), "nope.ics"), time.Now(), time.Now().Add(time.Hour))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
