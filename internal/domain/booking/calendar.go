package booking

import (
	"fmt"
	"net/url"
)

const calendarBaseURL = "https://calendar.google.com/calendar/render"

// CalendarLink returns an add-to-calendar URL. Only confirmed bookings with both slot
// bounds get one.
func (b *Booking) CalendarLink() string {
	if b.s.Status != StatusConfirmed {
		return ""
	}
	if b.s.ApprovedSlotStart == nil || b.s.ApprovedSlotEnd == nil {
		return ""
	}

	const layout = "20060102T150405Z"
	start := b.s.ApprovedSlotStart.UTC().Format(layout)
	end := b.s.ApprovedSlotEnd.UTC().Format(layout)

	location := "Online Session"
	if b.s.Mode == ModeOffline {
		location = "MindSettler Studio"
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", "MindSettler Counseling Session")
	params.Set("dates", start+"/"+end)
	params.Set("details", fmt.Sprintf("Session ID: %s\nMode: %s\n\nPlease arrive 5 minutes early.",
		b.s.AcknowledgementID, b.s.Mode))
	params.Set("location", location)

	return calendarBaseURL + "?" + params.Encode()
}
