// ABOUTME: Session provider composing token bootstrap and conversation start.
// ABOUTME: Satisfies the session registry's Provider interface.

package directline

import "context"

// Opener opens backend conversations for the session registry: fetch a
// bootstrap token, then start a conversation with it.
type Opener struct {
	tokens *BotService
	client *Client
}

// NewOpener creates an Opener over the given token client and API client.
func NewOpener(tokens *BotService, client *Client) *Opener {
	return &Opener{tokens: tokens, client: client}
}

// Open starts a fresh backend conversation and returns its id and the
// conversation-scoped token.
func (o *Opener) Open(ctx context.Context) (conversationID, token string, err error) {
	bootstrap, err := o.tokens.FetchToken(ctx)
	if err != nil {
		return "", "", err
	}

	conv, err := o.client.StartConversation(ctx, bootstrap)
	if err != nil {
		return "", "", err
	}
	return conv.ConversationID, conv.Token, nil
}
