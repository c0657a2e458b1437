// Package directline is the client for the backend activity-exchange API.
//
// The backend exposes a pull-style feed: the relay posts an activity into
// a conversation, then polls GET .../activities with an opaque watermark
// to observe new activities. Conversations are opened with a bootstrap
// token fetched from the bot's token endpoint and carry their own scoped
// token from then on.
package directline
