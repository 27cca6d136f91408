package google

import calendar "google.golang.org/api/calendar/v3"

// DefaultOAuthScopes are the scopes requested on the consent screen.
// Creating events with a Meet conference only needs event write access.
var DefaultOAuthScopes = []string{
	calendar.CalendarEventsScope,
}
