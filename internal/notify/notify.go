// Package notify raises desktop notifications for CLI-driven approvals.
package notify

import "github.com/gen2brain/beeep"

// Booked announces a freshly committed interval. Notification failures are
// returned so callers can log them, but they never affect the booking.
func Booked(title, detail string) error {
	return beeep.Notify("smartsched: "+title, detail, "")
}
