// Package notifier sends desktop notifications about plan runs
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/realmforge/realmforge/pkg/logger"
)

// Notifier is told about project runs
type Notifier interface {
	NotifyRunStart(project string)
	NotifyRunSuccess(project string, duration time.Duration)
	NotifyRunFailure(project string, err error)
}

// RunNotifier sends run notifications through beeep
type RunNotifier struct {
	enabled      bool
	successSound string
	failureSound string
	logger       logger.Logger
	send         SendFunc
	beep         func() error
}

var _ Notifier = (*RunNotifier)(nil)

// SendFunc delivers one notification
type SendFunc func(title, message string) error

// Config represents notification configuration
type Config struct {
	Enabled      bool
	SuccessSound string
	FailureSound string
}

// Option customizes a RunNotifier
type Option func(*RunNotifier)

// WithSendFunc replaces the desktop notification backend
func WithSendFunc(send SendFunc) Option {
	return func(n *RunNotifier) { n.send = send }
}

// WithBeepFunc replaces the sound backend
func WithBeepFunc(beep func() error) Option {
	return func(n *RunNotifier) { n.beep = beep }
}

// New creates a new run notifier
func New(config Config, log logger.Logger, opts ...Option) *RunNotifier {
	n := &RunNotifier{
		enabled:      config.Enabled,
		successSound: config.SuccessSound,
		failureSound: config.FailureSound,
		logger:       logger.OrNop(log).WithComponent("notifier"),
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyRunStart notifies that a project run has started
func (n *RunNotifier) NotifyRunStart(project string) {
	if !n.enabled {
		return
	}
	n.sendNotification("realmforge", fmt.Sprintf("Running %s...", project), "")
}

// NotifyRunSuccess notifies that a project run succeeded
func (n *RunNotifier) NotifyRunSuccess(project string, duration time.Duration) {
	if !n.enabled {
		return
	}
	n.sendNotification("✅ Run Succeeded",
		fmt.Sprintf("%s finished in %s", project, FormatDuration(duration)),
		n.successSound)
}

// NotifyRunFailure notifies that a project run failed
func (n *RunNotifier) NotifyRunFailure(project string, err error) {
	if !n.enabled {
		return
	}
	n.sendNotification("❌ Run Failed", fmt.Sprintf("%s: %v", project, err), n.failureSound)
}

// NotifySummary reports the totals of a multi-project run. Runs of a
// single project are already covered by the per-project notifications.
func (n *RunNotifier) NotifySummary(succeeded, failed, skipped int) {
	if !n.enabled || succeeded+failed+skipped < 2 {
		return
	}
	title := "✅ All Projects Succeeded"
	sound := n.successSound
	if failed > 0 {
		title = "❌ Some Projects Failed"
		sound = n.failureSound
	}
	n.sendNotification(title,
		fmt.Sprintf("%d succeeded, %d failed, %d skipped", succeeded, failed, skipped),
		sound)
}

func (n *RunNotifier) sendNotification(title, message, soundName string) {
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
	}

	if soundName != "" {
		if err := n.beep(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithError(err))
		}
	}
}

// FormatDuration renders d compactly for notifications
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
