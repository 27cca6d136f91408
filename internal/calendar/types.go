package calendar

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
)

const (
	// PrimaryCalendarID addresses the authorizing user's primary calendar.
	PrimaryCalendarID = "primary"

	// MeetingDuration is the length of every created meeting.
	MeetingDuration = time.Hour

	// conferenceDataVersion 1 lets the insert create a conference.
	conferenceDataVersion = 1
)

// MeetingCreator creates a meeting and returns its join link.
type MeetingCreator interface {
	CreateMeeting(ctx context.Context, now time.Time) string
}

// CreatorFactory builds a MeetingCreator acting for the owner of token.
type CreatorFactory interface {
	ForCredentials(ctx context.Context, token *oauth2.Token) (MeetingCreator, error)
}

// Meeting is a created event with its conference.
type Meeting struct {
	EventID     string
	RequestID   string
	Summary     string
	Start       time.Time
	End         time.Time
	HangoutLink string
}

// meetingLink returns the Meet URL of event. The hangoutLink field is
// preferred; the video entry point is the fallback.
func meetingLink(event *calendar.Event) string {
	if event == nil {
		return ""
	}
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				return ep.Uri
			}
		}
	}
	return ""
}
