// Package dedupe provides a time-bounded cache for suppressing duplicate
// webhook deliveries from the external channel.
package dedupe
