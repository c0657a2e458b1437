// Package store persists the relay's audit ledger: which backend
// conversations were opened and which messages were relayed in each
// direction. It is history only; live session state (tokens, watermarks)
// is in-memory and does not survive a restart.
package store
