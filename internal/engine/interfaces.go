package engine

import "github.com/realmforge/realmforge/internal/state"

// StateStore records run state between invocations. *state.Manager is the
// production implementation; tests and one-shot commands may use others.
type StateStore interface {
	IsLocked(project string) (bool, error)
	MarkRunning(project string, tasks []string) (*state.RunState, error)
	RecordResult(project string, outcome state.Outcome) error
}

// SummaryNotifier is implemented by notifiers that report the totals of a
// multi-project run
type SummaryNotifier interface {
	NotifySummary(succeeded, failed, skipped int)
}

// The remaining collaborators are concrete types: realm.World,
// lifecycle.StaticRegistry and plan.Builder have a single implementation.
// plan.MojoExecutor and notifier.Notifier are interfaces because the CLI
// and tests swap them.
