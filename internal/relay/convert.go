// ABOUTME: Converts backend reply activities into external channel messages.
// ABOUTME: Attachments, suggested actions, then Markdown-rewritten text.

package relay

import (
	"github.com/2389/relay-gateway/internal/channel"
	"github.com/2389/relay-gateway/internal/directline"
	"github.com/2389/relay-gateway/internal/markdown"
)

// Convert maps one backend activity to the external channel's message
// schema. Returns nil when the activity carries nothing to show; callers
// must skip nil results without sending.
func Convert(activity *directline.Activity) *channel.Message {
	if activity == nil {
		return nil
	}

	if len(activity.Attachments) > 0 {
		return convertAttachments(activity)
	}
	if activity.SuggestedActions != nil && len(activity.SuggestedActions.Actions) > 0 {
		return convertSuggestedActions(activity)
	}
	if activity.Text != "" {
		return &channel.Message{
			Type: channel.ActivityTypeMessage,
			Text: markdown.ToSlack(activity.Text),
		}
	}
	return nil
}

// ConvertAll converts a page of activities in order. Nil conversions are
// dropped; the relay sends messages one by one, never batched.
func ConvertAll(activities []directline.Activity) []*channel.Message {
	var msgs []*channel.Message
	for i := range activities {
		if msg := Convert(&activities[i]); msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func convertAttachments(activity *directline.Activity) *channel.Message {
	attachments := make([]channel.MessageAttachment, len(activity.Attachments))
	for i, att := range activity.Attachments {
		attachments[i] = channel.MessageAttachment{
			ContentType:  att.ContentType,
			ContentURL:   att.ContentURL,
			Content:      att.Content,
			Name:         att.Name,
			ThumbnailURL: att.ThumbnailURL,
		}
	}
	return &channel.Message{
		Type:        channel.ActivityTypeMessage,
		Text:        activity.Text,
		Speak:       activity.Speak,
		InputHint:   activity.InputHint,
		Attachments: attachments,
	}
}

func convertSuggestedActions(activity *directline.Activity) *channel.Message {
	actions := activity.SuggestedActions.Actions
	options := make([]string, len(actions))
	for i, action := range actions {
		options[i] = action.Title
	}
	return &channel.Message{
		Type:             channel.ActivityTypeMessage,
		Text:             activity.Text,
		Speak:            activity.Speak,
		InputHint:        activity.InputHint,
		SuggestedActions: options,
	}
}
