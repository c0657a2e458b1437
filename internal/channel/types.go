// ABOUTME: Wire schema for the external channel surface.
// ABOUTME: Inbound turn activities and outbound reply messages.

package channel

import "encoding/json"

// Inbound activity types the relay reacts to.
const (
	ActivityTypeMessage            = "message"
	ActivityTypeConversationUpdate = "conversationUpdate"
)

// Account identifies a participant on the external channel.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationRef names the external conversation a turn belongs to.
type ConversationRef struct {
	ID string `json:"id"`
}

// InboundActivity is one turn dispatched by the external channel to the
// relay's message endpoint.
type InboundActivity struct {
	Type         string          `json:"type"`
	ID           string          `json:"id,omitempty"`
	Conversation ConversationRef `json:"conversation"`
	From         Account         `json:"from"`
	Recipient    *Account        `json:"recipient,omitempty"`
	Text         string          `json:"text,omitempty"`
	TextFormat   string          `json:"textFormat,omitempty"`
	Locale       string          `json:"locale,omitempty"`

	// ServiceURL is where replies for this conversation are posted.
	ServiceURL string `json:"serviceUrl,omitempty"`
}

// InboundMessage is one user turn normalized from an inbound activity,
// as handed to the turn handler.
type InboundMessage struct {
	Text       string
	TextFormat string
	Locale     string
	FromID     string
	FromName   string
}

// MessageAttachment is a rich content item on an outbound message.
type MessageAttachment struct {
	ContentType  string          `json:"contentType"`
	ContentURL   string          `json:"contentUrl,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	Name         string          `json:"name,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
}

// Message is one outbound reply in the external channel's schema.
type Message struct {
	Type             string              `json:"type"`
	Text             string              `json:"text,omitempty"`
	Speak            string              `json:"speak,omitempty"`
	InputHint        string              `json:"inputHint,omitempty"`
	Attachments      []MessageAttachment `json:"attachments,omitempty"`
	SuggestedActions []string            `json:"suggestedActions,omitempty"`
}
