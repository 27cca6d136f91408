package slack

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/onemec/gmeet-slash-cmd/internal/identity"
)

// Scope decides who sees a response.
type Scope int

const (
	// ScopeEveryone posts the response to the whole channel.
	ScopeEveryone Scope = iota
	// ScopeMe shows the response only to the invoking user.
	ScopeMe
)

// Response types understood by Slack.
const (
	ResponseInChannel = "in_channel"
	ResponseEphemeral = "ephemeral"
)

// ResponseType returns the wire value of s.
func (s Scope) ResponseType() string {
	if s == ScopeEveryone {
		return ResponseInChannel
	}
	return ResponseEphemeral
}

// Text is a block text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Block is a layout block.
type Block struct {
	Type string `json:"type"`
	Text Text   `json:"text"`
}

// Message is a slash command response body.
type Message struct {
	Blocks       []Block `json:"blocks"`
	ResponseType string  `json:"response_type"`
}

// NewMessage renders each line as its own markdown section.
func NewMessage(lines []string, scope Scope) Message {
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Block{
			Type: "section",
			Text: Text{Type: "mrkdwn", Text: line},
		})
	}
	return Message{Blocks: blocks, ResponseType: scope.ResponseType()}
}

// AuthLink builds the link a user follows to start the authorization flow.
// baseURL may be given with or without a scheme; https is assumed.
func AuthLink(baseURL string, id identity.Identity, setup string) string {
	base := strings.TrimRight(baseURL, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	// Parameter order is fixed: id, team, setup.
	return base + "/auth?id=" + url.QueryEscape(id.ID) +
		"&team=" + url.QueryEscape(id.Team) +
		"&setup=" + url.QueryEscape(setup)
}

// PromptMessage asks the user to grant calendar access. Only the user sees it.
func PromptMessage(authURL string) Message {
	return NewMessage([]string{
		"Thank you for using *Google Hangouts Meet slash command* :tada:",
		"*Usage:* Just run command `/meet` to get a meeting URL.",
		"Before you start using this command, please give permission. Click the link below.",
		fmt.Sprintf("<%s|Allow to access Google Calendar>", authURL),
	}, ScopeMe)
}

// MeetingMessage shares a meeting link with the channel.
func MeetingMessage(meetURL string) Message {
	return NewMessage([]string{
		fmt.Sprintf("<%s|Open Hangouts Meet>", meetURL),
		fmt.Sprintf("Meeting URL: %s", meetURL),
	}, ScopeEveryone)
}
