// Package calendar creates Google Calendar events with a Google Meet
// conference attached.
//
// Example usage:
//
//	factory := calendar.NewFactory(oauthFactory, logger, metrics)
//	creator, err := factory.ForCredentials(ctx, token)
//	if err != nil {
//	    return err
//	}
//
//	// "" when the insert failed
//	link := creator.CreateMeeting(ctx, time.Now())
package calendar
