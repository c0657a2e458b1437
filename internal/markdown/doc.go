// Package markdown rewrites standard Markdown into the Slack mrkdwn
// dialect used by the external channel. Code spans are masked before any
// rewrite stage runs, so their contents are never altered.
package markdown
