package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	rfcontext "github.com/realmforge/realmforge/pkg/context"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/metrics"
	"github.com/realmforge/realmforge/pkg/types"
)

// MojoExecutor runs a single plan item for a project
type MojoExecutor interface {
	Execute(ctx context.Context, project string, item *Item) error
}

// ProjectPlan pairs a project with its plan
type ProjectPlan struct {
	Project string
	Plan    *ExecutionPlan
}

// Result is the outcome of running one project's plan
type Result struct {
	Project  string
	Status   types.RunStatus
	Executed int
	Failed   *Item
	Err      error
	Duration time.Duration
}

// Executor runs the plans of many projects concurrently. Items of one
// project run in plan order. Items that are not thread safe hold a lock
// per plugin, so such a plugin never runs for two projects at once.
type Executor struct {
	mojos       MojoExecutor
	parallelism int
	failFast    bool
	log         logger.Logger

	pluginLocks sync.Map // plugin key -> *sync.Mutex
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithParallelism caps the number of projects running at once
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) { e.parallelism = n }
}

// WithFailFast stops scheduling further projects after the first failure
func WithFailFast(failFast bool) ExecutorOption {
	return func(e *Executor) { e.failFast = failFast }
}

// WithLogger sets the executor logger
func WithLogger(log logger.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// NewExecutor creates an executor around mojos
func NewExecutor(mojos MojoExecutor, opts ...ExecutorOption) *Executor {
	e := &Executor{mojos: mojos}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.OrNop(e.log).WithComponent("executor")
	return e
}

// Run executes every plan and returns one result per plan, in input order.
// The returned error joins the errors of all failed projects, plus a group
// error that no project result carries.
func (e *Executor) Run(ctx context.Context, plans []ProjectPlan) ([]Result, error) {
	results := make([]Result, len(plans))
	for i, pp := range plans {
		results[i] = Result{Project: pp.Project, Status: types.RunStatusPending}
	}

	group, gctx := NewSafeGroup(ctx, e.log)
	group.SetLimit(e.parallelism)
	if !e.failFast {
		gctx = ctx
	}

	for i := range plans {
		i := i
		group.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i].Status = types.RunStatusFailed
					results[i].Err = fmt.Errorf("goroutine panic: %v", r)
					panic(r)
				}
			}()
			results[i] = e.runProject(gctx, plans[i])
			if e.failFast && results[i].Status == types.RunStatusFailed {
				return results[i].Err
			}
			return nil
		})
	}
	waitErr := group.Wait()

	var errs []error
	for i, r := range results {
		if r.Status == types.RunStatusPending || r.Status == types.RunStatusRunning {
			// the goroutine ended without reporting, e.g. a panic in Wait
			r.Status = types.RunStatusFailed
			r.Err = waitErr
			if r.Err == nil {
				r.Err = errors.New("project run did not complete")
			}
			results[i] = r
		}
		if r.Status == types.RunStatusFailed {
			errs = append(errs, fmt.Errorf("project %s: %w", r.Project, r.Err))
		}
	}
	joined := errors.Join(errs...)
	if waitErr != nil && !errors.Is(joined, waitErr) && !containsMessage(errs, waitErr) {
		joined = errors.Join(joined, waitErr)
	}
	return results, joined
}

func (e *Executor) runProject(ctx context.Context, pp ProjectPlan) Result {
	start := time.Now()
	ctx = rfcontext.WithProject(ctx, pp.Project)
	ctx = rfcontext.WithStartTime(ctx, start)
	log := logger.WithContext(ctx, e.log)

	res := Result{Project: pp.Project, Status: types.RunStatusRunning}
	if err := ctx.Err(); err != nil {
		if pp.Plan != nil {
			for _, item := range pp.Plan.Items() {
				metrics.MojoExecutions.WithLabelValues(item.PluginKey(), metrics.OutcomeSkipped).Inc()
			}
		}
		res.Status = types.RunStatusSkipped
		res.Err = err
		log.Warn("Project run skipped", logger.WithError(err))
		return res
	}
	if pp.Plan == nil {
		res.Status = types.RunStatusSucceeded
		return res
	}

	items := pp.Plan.Items()
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			for _, rest := range items[res.Executed:] {
				metrics.MojoExecutions.WithLabelValues(rest.PluginKey(), metrics.OutcomeSkipped).Inc()
			}
			res.Duration = time.Since(start)
			if res.Executed == 0 {
				res.Status = types.RunStatusSkipped
				res.Err = err
				log.Warn("Project run skipped", logger.WithError(err))
				return res
			}
			// a started project that cannot finish has failed
			res.Status = types.RunStatusFailed
			res.Err = fmt.Errorf("cancelled after %d of %d items: %w", res.Executed, len(items), err)
			log.Warn("Project run cancelled", logger.WithField("remaining", len(items)-res.Executed))
			metrics.ProjectRunDuration.WithLabelValues(pp.Project).Observe(res.Duration.Seconds())
			return res
		}

		if err := e.execute(ctx, pp.Project, item); err != nil {
			res.Status = types.RunStatusFailed
			res.Failed = item
			res.Err = fmt.Errorf("%s: %w", item, err)
			res.Duration = time.Since(start)
			log.Error("Mojo execution failed",
				logger.WithField("binding", item.String()),
				logger.WithError(err))
			metrics.ProjectRunDuration.WithLabelValues(pp.Project).Observe(res.Duration.Seconds())
			return res
		}
		res.Executed++
	}

	res.Status = types.RunStatusSucceeded
	res.Duration = time.Since(start)
	metrics.ProjectRunDuration.WithLabelValues(pp.Project).Observe(res.Duration.Seconds())
	log.Success("Project plan completed", logger.WithField("items", res.Executed))
	return res
}

// containsMessage reports whether one of errs already carries target's text
func containsMessage(errs []error, target error) bool {
	for _, err := range errs {
		if strings.Contains(err.Error(), target.Error()) {
			return true
		}
	}
	return false
}

func (e *Executor) execute(ctx context.Context, project string, item *Item) error {
	plugin := item.PluginKey()
	if !item.ThreadSafe {
		mu := e.pluginLock(plugin)
		mu.Lock()
		defer mu.Unlock()
	}

	start := time.Now()
	err := e.mojos.Execute(ctx, project, item)
	metrics.MojoExecutionDuration.WithLabelValues(plugin).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MojoExecutions.WithLabelValues(plugin, metrics.OutcomeFailure).Inc()
		return err
	}
	metrics.MojoExecutions.WithLabelValues(plugin, metrics.OutcomeSuccess).Inc()
	return nil
}

func (e *Executor) pluginLock(plugin string) *sync.Mutex {
	mu, _ := e.pluginLocks.LoadOrStore(plugin, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// DryRunExecutor logs each item instead of running it
type DryRunExecutor struct {
	log logger.Logger
}

var _ MojoExecutor = (*DryRunExecutor)(nil)

// NewDryRunExecutor creates a DryRunExecutor
func NewDryRunExecutor(log logger.Logger) *DryRunExecutor {
	return &DryRunExecutor{log: logger.OrNop(log).WithComponent("dry-run")}
}

// Execute logs the item
func (d *DryRunExecutor) Execute(ctx context.Context, project string, item *Item) error {
	d.log.Info("Would execute "+item.String(),
		logger.WithField("project", project),
		logger.WithField("thread_safe", item.ThreadSafe))
	return nil
}
