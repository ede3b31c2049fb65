// Package notification provides desktop notification utilities.
package notification

import (
	"fmt"

	"github.com/gen2brain/beeep"
	"github.com/xvierd/branchbar/internal/config"
	"github.com/xvierd/branchbar/internal/display"
	"github.com/xvierd/branchbar/internal/ports"
)

// appName prefixes every notification title.
const appName = "branchbar"

// Notifier handles desktop notifications.
type Notifier struct {
	cfg    *config.NotificationConfig
	notify func(title, message string) error
	alert  func(title, message string) error
}

// Ensure Notifier implements ports.Notifier.
var _ ports.Notifier = (*Notifier)(nil)

// New creates a new notifier with the given configuration.
func New(cfg *config.NotificationConfig) *Notifier {
	return &Notifier{
		cfg:    cfg,
		notify: func(title, message string) error { return beeep.Notify(title, message, "") },
		alert:  func(title, message string) error { return beeep.Alert(title, message, "") },
	}
}

// Notify displays a desktop notification if enabled.
func (n *Notifier) Notify(title, message string) error {
	if !n.IsEnabled() {
		return nil
	}

	return n.notify(title, message)
}

// NotifyBranchChange displays a notification when the monitored repository
// switches branch or detaches.
func (n *Notifier) NotifyBranchChange(repo, from, to string) error {
	if n.cfg == nil || !n.cfg.OnBranchChange {
		return nil
	}
	title := fmt.Sprintf("%s: %s", appName, repo)
	message := fmt.Sprintf("Switched from %s to %s", from, to)
	return n.Notify(title, message)
}

// NotifyNotARepository raises an alert for a rejected selection.
func (n *Notifier) NotifyNotARepository(path string) error {
	if !n.IsEnabled() {
		return nil
	}
	return n.alert(appName, fmt.Sprintf("%s\n%s", display.NotARepositoryMessage, path))
}

// IsEnabled returns true if notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	return n.cfg != nil && n.cfg.Enabled
}
