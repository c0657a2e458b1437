// Package silentauth resolves the backend's interactive sign-in prompts
// without ever surfacing them to the end user. A prompt is answered by
// acquiring a token for the service account and posting a
// signin/tokenExchange invoke back into the backend conversation.
package silentauth
