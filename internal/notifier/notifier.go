// Package notifier sends scan completion and interruption notices through
// a shoutrrr URL (Discord, Telegram, email and friends). Unconfigured or
// failing notifications are logged and dropped, never fatal.
package notifier

import (
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/drivedex/drivedex/internal/catalog"
	"github.com/drivedex/drivedex/internal/logger"
)

type Notifier struct {
	url string
}

// New creates a notifier for the given shoutrrr URL; an empty URL yields
// a no-op notifier.
func New(url string) *Notifier {
	return &Notifier{url: url}
}

func (n *Notifier) send(message string) {
	if n.url == "" {
		return
	}
	if err := shoutrrr.Send(n.url, message); err != nil {
		logger.Errorf("sending notification: %v", err)
	}
}

// ScanCompleted announces a finished session with its counters.
func (n *Notifier) ScanCompleted(driveName string, c catalog.Counters) {
	n.send(fmt.Sprintf(
		"drivedex: scan of %s completed. scanned=%d added=%d updated=%d deleted=%d skipped=%d",
		driveName, c.Scanned, c.Added, c.Updated, c.Deleted, c.Skipped))
}

// ScanInterrupted announces an interrupted session and how to resume it.
func (n *Notifier) ScanInterrupted(driveName string, c catalog.Counters) {
	n.send(fmt.Sprintf(
		"drivedex: scan of %s interrupted after %d entries. Re-run with --resume to continue.",
		driveName, c.Scanned))
}
