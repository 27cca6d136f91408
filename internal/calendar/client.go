package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/onemec/gmeet-slash-cmd/internal/google"
	"github.com/onemec/gmeet-slash-cmd/internal/instrumentation"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

var _ MeetingCreator = (*Client)(nil)

// NewClient creates a Calendar client sending requests through httpClient,
// which must already authorize them.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:    svc,
		logger: logging.WithService(slog.Default(), instrumentation.ServiceCalendar),
	}, nil
}

// InsertMeeting creates a one hour event starting at now on the primary
// calendar and asks Google to attach a Meet conference to it.
func (c *Client) InsertMeeting(ctx context.Context, now time.Time) (*Meeting, error) {
	requestID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate meeting id: %w", err)
	}

	m := &Meeting{
		RequestID: requestID.String(),
		Summary:   "Meeting " + requestID.String(),
		Start:     now.UTC(),
		End:       now.UTC().Add(MeetingDuration),
	}

	event := &calendar.Event{
		Summary: m.Summary,
		Start:   &calendar.EventDateTime{DateTime: m.Start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: m.End.Format(time.RFC3339)},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: m.RequestID,
			},
		},
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsertEvent)
	defer span.End()
	start := time.Now()

	created, err := c.svc.Events.Insert(PrimaryCalendarID, event).
		ConferenceDataVersion(conferenceDataVersion).
		Context(ctx).
		Do()

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsertEvent, status, time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	m.EventID = created.Id
	m.HangoutLink = meetingLink(created)
	return m, nil
}

// CreateMeeting is InsertMeeting reduced to the join link. Failures are
// logged and yield "".
func (c *Client) CreateMeeting(ctx context.Context, now time.Time) string {
	m, err := c.InsertMeeting(ctx, now)
	if err != nil {
		logging.WithOperation(c.logger, instrumentation.OperationInsertEvent).
			ErrorContext(ctx, "Failed to insert an event to Google Calendar",
				logging.Status(logging.StatusError), logging.Err(err))
		return ""
	}
	if m.HangoutLink == "" {
		c.logger.WarnContext(ctx, "event created without a conference link",
			logging.Operation(instrumentation.OperationInsertEvent),
			slog.String("event_id", m.EventID))
	}
	return m.HangoutLink
}

// Factory builds Calendar clients authorized with user credentials.
type Factory struct {
	oauth   *google.ClientFactory
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	apiOpts []option.ClientOption
}

var _ CreatorFactory = (*Factory)(nil)

// NewFactory creates a Factory. apiOpts are passed to every Calendar
// service, e.g. option.WithEndpoint in tests.
func NewFactory(oauth *google.ClientFactory, logger *slog.Logger, metrics *instrumentation.Metrics, apiOpts ...option.ClientOption) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		oauth:   oauth,
		logger:  logging.WithService(logger, instrumentation.ServiceCalendar),
		metrics: metrics,
		apiOpts: apiOpts,
	}
}

// ForCredentials returns a Client acting for the owner of token.
func (f *Factory) ForCredentials(ctx context.Context, token *oauth2.Token) (MeetingCreator, error) {
	httpClient, err := f.oauth.Build(token).HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	c, err := NewClient(ctx, httpClient, f.apiOpts...)
	if err != nil {
		return nil, err
	}
	c.logger = f.logger
	c.metrics = f.metrics
	return c, nil
}
