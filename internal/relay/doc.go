// Package relay is the per-turn controller between the external channel
// and the backend conversation service.
//
// # Turn flow
//
// A conversation-start event warms the session. An inbound message is
// forwarded to the backend, then the poll-and-relay loop waits for the
// agent's replies:
//
//  1. Fetch one feed page past the session watermark.
//  2. Keep message activities authored under the configured bot name.
//  3. If the page watermark has not moved past the stored one, a newer
//     turn already owns delivery and the loop aborts silently.
//  4. Sign-in prompts go to the silent auth handler, never to the user;
//     everything else is converted and sent one message at a time.
//  5. Advance the watermark, or sleep and retry until the maximum wait
//     is spent.
//
// Two rapid turns for the same conversation may run loops concurrently;
// the watermark comparison is the only arbitration, and the loser stands
// down without sending.
package relay
