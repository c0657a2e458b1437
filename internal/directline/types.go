// ABOUTME: Wire schema for the Direct Line activity-exchange API.
// ABOUTME: Activities, attachments, suggested actions, and activity sets.

package directline

import "encoding/json"

// Activity types used by the relay.
const (
	ActivityTypeMessage = "message"
	ActivityTypeInvoke  = "invoke"
)

// ContentTypeSignInCard marks an attachment as an interactive sign-in
// prompt. Activities carrying one are intercepted and never forwarded to
// the end user.
const ContentTypeSignInCard = "application/vnd.microsoft.card.signin"

// ChannelAccount identifies a conversation participant.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Attachment is a rich content item carried by an activity.
type Attachment struct {
	ContentType  string          `json:"contentType"`
	ContentURL   string          `json:"contentUrl,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	Name         string          `json:"name,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
}

// CardAction is one option in a suggested-actions set.
type CardAction struct {
	Type  string `json:"type,omitempty"`
	Title string `json:"title"`
	Value string `json:"value,omitempty"`
}

// SuggestedActions offers the user quick replies.
type SuggestedActions struct {
	Actions []CardAction `json:"actions"`
}

// Activity is one unit of conversational exchange on the backend feed.
type Activity struct {
	Type             string            `json:"type"`
	ID               string            `json:"id,omitempty"`
	Timestamp        string            `json:"timestamp,omitempty"`
	From             ChannelAccount    `json:"from"`
	Recipient        *ChannelAccount   `json:"recipient,omitempty"`
	Text             string            `json:"text,omitempty"`
	TextFormat       string            `json:"textFormat,omitempty"`
	Locale           string            `json:"locale,omitempty"`
	Speak            string            `json:"speak,omitempty"`
	InputHint        string            `json:"inputHint,omitempty"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
	SuggestedActions *SuggestedActions `json:"suggestedActions,omitempty"`

	// Name and Value are set on invoke activities only.
	Name  string `json:"name,omitempty"`
	Value any    `json:"value,omitempty"`
}

// HasSignInCard reports whether any attachment is a sign-in prompt.
func (a *Activity) HasSignInCard() bool {
	for _, att := range a.Attachments {
		if att.ContentType == ContentTypeSignInCard {
			return true
		}
	}
	return false
}

// ActivitySet is one page of the backend activity feed. Watermark is the
// opaque progress marker for everything delivered up to this page.
type ActivitySet struct {
	Activities []Activity `json:"activities"`
	Watermark  string     `json:"watermark"`
}

// Conversation is the backend's handle for a newly started conversation.
type Conversation struct {
	ConversationID string `json:"conversationId"`
	Token          string `json:"token"`
	ExpiresIn      int    `json:"expires_in,omitempty"`
}
