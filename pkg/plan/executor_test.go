package plan_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/mocks"
	"github.com/realmforge/realmforge/pkg/plan"
	"github.com/realmforge/realmforge/pkg/types"
)

func buildPlan(t *testing.T, target string) *plan.ExecutionPlan {
	t.Helper()
	p, err := plan.NewBuilder(registry(), nil).BuildPlan(jarBindings(t), target)
	if err != nil {
		t.Fatalf("BuildPlan(%s): %v", target, err)
	}
	return p
}

func TestExecutor_RunsItemsInOrder(t *testing.T) {
	mojos := mocks.NewMockMojoExecutor()
	exec := plan.NewExecutor(mojos)

	results, err := exec.Run(context.Background(), []plan.ProjectPlan{
		{Project: "org.example:app", Plan: buildPlan(t, "package")},
		{Project: "org.example:lib", Plan: buildPlan(t, "compile")},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantApp := []string{
		"org.example:compiler-plugin:compile",
		"org.example:surefire-plugin:test",
		"org.example:jar-plugin:jar",
	}
	if diff := cmp.Diff(wantApp, mojos.ProjectCalls("org.example:app")); diff != "" {
		t.Errorf("app calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantApp[:1], mojos.ProjectCalls("org.example:lib")); diff != "" {
		t.Errorf("lib calls (-want +got):\n%s", diff)
	}

	if len(results) != 2 || results[0].Project != "org.example:app" || results[1].Project != "org.example:lib" {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.Status != types.RunStatusSucceeded || r.Err != nil {
			t.Errorf("%s: status %s, err %v", r.Project, r.Status, r.Err)
		}
	}
	if results[0].Executed != 3 {
		t.Errorf("app executed %d items", results[0].Executed)
	}
}

func TestExecutor_SerializesNonThreadSafePlugins(t *testing.T) {
	mojos := mocks.NewMockMojoExecutor()
	mojos.SetDelay(20 * time.Millisecond)
	exec := plan.NewExecutor(mojos)

	var plans []plan.ProjectPlan
	for _, name := range []string{"a", "b", "c", "d"} {
		plans = append(plans, plan.ProjectPlan{Project: name, Plan: buildPlan(t, "package")})
	}
	if _, err := exec.Run(context.Background(), plans); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := mojos.MaxConcurrent("org.example:jar-plugin"); got != 1 {
		t.Errorf("jar-plugin ran %d at once, want 1", got)
	}
	if n := len(mojos.Calls()); n != 12 {
		t.Errorf("calls = %d, want 12", n)
	}
}

func TestExecutor_CollectsFailures(t *testing.T) {
	mojos := mocks.NewMockMojoExecutor()
	boom := errors.New("jar failed")
	mojos.SetProjectError("a", "org.example:jar-plugin:jar", boom)

	results, err := plan.NewExecutor(mojos).Run(context.Background(), []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "install")},
		{Project: "b", Plan: buildPlan(t, "install")},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "project a") {
		t.Errorf("error %q does not name the project", err)
	}

	a := results[0]
	if a.Status != types.RunStatusFailed || a.Executed != 2 {
		t.Errorf("a = status %s, executed %d", a.Status, a.Executed)
	}
	if a.Failed == nil || a.Failed.Binding.ArtifactID != "jar-plugin" {
		t.Errorf("a failed item = %v", a.Failed)
	}
	if b := results[1]; b.Status != types.RunStatusSucceeded || b.Executed != 4 {
		t.Errorf("b = status %s, executed %d", b.Status, b.Executed)
	}
}

func TestExecutor_FailFastSkipsRemainingProjects(t *testing.T) {
	mojos := mocks.NewMockMojoExecutor()
	boom := errors.New("compile failed")
	mojos.SetProjectError("a", "org.example:compiler-plugin:compile", boom)

	exec := plan.NewExecutor(mojos, plan.WithParallelism(1), plan.WithFailFast(true))
	results, err := exec.Run(context.Background(), []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "package")},
		{Project: "b", Plan: buildPlan(t, "package")},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v", err)
	}
	if results[1].Status != types.RunStatusSkipped {
		t.Errorf("b status = %s, want skipped", results[1].Status)
	}
	if calls := mojos.ProjectCalls("b"); len(calls) != 0 {
		t.Errorf("b should not run, got %v", calls)
	}
}

func TestExecutor_RecoversPanics(t *testing.T) {
	mojos := mocks.NewMockMojoExecutor()
	mojos.SetPanic("org.example:jar-plugin:jar")

	var out bytes.Buffer
	exec := plan.NewExecutor(mojos, plan.WithLogger(logger.CreateLoggerWithOutput("", "info", &out)))

	// both projects panic while holding the jar-plugin lock; the second
	// one only gets there if the first released it
	_, err := exec.Run(context.Background(), []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "package")},
		{Project: "b", Plan: buildPlan(t, "package")},
	})
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("Run error = %v, want a recovered panic", err)
	}
	if !strings.Contains(out.String(), "Goroutine panic recovered") {
		t.Errorf("panic was not logged: %q", out.String())
	}
	if n := len(mojos.Calls()); n != 6 {
		t.Errorf("calls = %d, want 6", n)
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mojos := mocks.NewMockMojoExecutor()
	results, err := plan.NewExecutor(mojos).Run(ctx, []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "package")},
		{Project: "empty"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Status != types.RunStatusSkipped || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("a = %+v", results[0])
	}
	if results[1].Status != types.RunStatusSkipped {
		t.Errorf("project without a plan = %s, want skipped", results[1].Status)
	}
	if n := len(mojos.Calls()); n != 0 {
		t.Errorf("calls = %d after cancellation", n)
	}
}

// mojoFunc adapts a function to plan.MojoExecutor
type mojoFunc func(ctx context.Context, project string, item *plan.Item) error

func (f mojoFunc) Execute(ctx context.Context, project string, item *plan.Item) error {
	return f(ctx, project, item)
}

func TestExecutor_FailFastFailsStartedProjects(t *testing.T) {
	boom := errors.New("compile failed")
	mojos := mojoFunc(func(ctx context.Context, project string, item *plan.Item) error {
		if project == "bad" {
			return boom
		}
		// good finishes its first item only once bad has cancelled the run
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Error("run was not cancelled")
		}
		return nil
	})

	exec := plan.NewExecutor(mojos, plan.WithParallelism(2), plan.WithFailFast(true))
	results, err := exec.Run(context.Background(), []plan.ProjectPlan{
		{Project: "good", Plan: buildPlan(t, "package")},
		{Project: "bad", Plan: buildPlan(t, "package")},
		{Project: "late", Plan: buildPlan(t, "package")},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v", err)
	}

	good := results[0]
	if good.Status != types.RunStatusFailed || good.Executed != 1 {
		t.Errorf("good = status %s, executed %d, want failed after 1", good.Status, good.Executed)
	}
	if !errors.Is(good.Err, context.Canceled) {
		t.Errorf("good err = %v, want context.Canceled", good.Err)
	}
	if results[1].Status != types.RunStatusFailed {
		t.Errorf("bad status = %s", results[1].Status)
	}
	if late := results[2]; late.Status != types.RunStatusSkipped || late.Executed != 0 {
		t.Errorf("late = status %s, executed %d, want skipped", late.Status, late.Executed)
	}
}

func TestExecutor_FailFastSkipsEmptyPlans(t *testing.T) {
	boom := errors.New("compile failed")
	mojos := mocks.NewMockMojoExecutor()
	mojos.SetProjectError("a", "org.example:compiler-plugin:compile", boom)

	exec := plan.NewExecutor(mojos, plan.WithParallelism(1), plan.WithFailFast(true))
	results, err := exec.Run(context.Background(), []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "package")},
		{Project: "empty"},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v", err)
	}
	if results[1].Status != types.RunStatusSkipped {
		t.Errorf("empty = %s, want skipped", results[1].Status)
	}
}

func TestExecutor_ReportsPanicAlongsideFailures(t *testing.T) {
	boom := errors.New("compile failed")
	mojos := mocks.NewMockMojoExecutor()
	mojos.SetProjectError("a", "org.example:compiler-plugin:compile", boom)
	mojos.SetPanic("org.example:jar-plugin:jar")

	results, err := plan.NewExecutor(mojos).Run(context.Background(), []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "package")},
		{Project: "b", Plan: buildPlan(t, "package")},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "project b: goroutine panic") {
		t.Errorf("Run error %q does not report the panic in b", err)
	}

	b := results[1]
	if b.Status != types.RunStatusFailed {
		t.Errorf("b status = %s, want failed", b.Status)
	}
	if b.Err == nil || !strings.Contains(b.Err.Error(), "panic") {
		t.Errorf("b err = %v, want the panic", b.Err)
	}
}

func TestDryRunExecutor(t *testing.T) {
	var out bytes.Buffer
	dry := plan.NewDryRunExecutor(logger.CreateLoggerWithOutput("", "info", &out))

	if _, err := plan.NewExecutor(dry).Run(context.Background(), []plan.ProjectPlan{
		{Project: "a", Plan: buildPlan(t, "compile")},
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Would execute compile: org.example:compiler-plugin:compile (default)") {
		t.Errorf("dry run output = %q", out.String())
	}
}
