// Package channel is the external chat channel surface: the inbound
// message endpoint, bearer-token authentication, replay suppression for
// redelivered webhooks, and the connector client that posts replies back
// to the channel. Turn failures become a single generic apology to the
// user while the real error is logged.
package channel
