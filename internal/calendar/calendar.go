// Package calendar imports externally booked events as committed intervals.
package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

// Import retrieves and parses iCalendar events from a URL or file path,
// returning them as interval drafts (ID 0, no task) that overlap the given
// window. Callers persist what they want to keep.
func Import(ctx context.Context, source string, windowStart, windowEnd time.Time) ([]schedule.Interval, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	dec := ical.NewDecoder(r)
	var intervals []schedule.Interval

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(nil)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(nil)
			if err != nil || !end.After(start) {
				continue
			}

			if start.Before(windowEnd) && end.After(windowStart) {
				summary, _ := event.Props.Text(ical.PropSummary)
				if summary == "" {
					summary = "imported event"
				}
				intervals = append(intervals, schedule.Interval{
					Title: summary,
					Start: start,
					End:   end,
				})
			}
		}
	}

	return intervals, nil
}
