package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/realmforge/realmforge/internal/engine"
	"github.com/realmforge/realmforge/internal/mojo"
	"github.com/realmforge/realmforge/internal/state"
	"github.com/realmforge/realmforge/pkg/config"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/metrics"
	"github.com/realmforge/realmforge/pkg/notifier"
	"github.com/realmforge/realmforge/pkg/plan"
	"github.com/realmforge/realmforge/pkg/process"
	"github.com/realmforge/realmforge/pkg/types"
	"github.com/spf13/cobra"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	var projects []string

	cmd := &cobra.Command{
		Use:   "plan <task>...",
		Short: "Print the execution plan of each project",
		Long: `Resolve the lifecycle bindings of each project and print the ordered
mojo executions for the given phases and goals.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(args, projects)
		},
	}

	cmd.Flags().StringSliceVarP(&projects, "project", "p", nil, "projects to plan (default: all)")
	return cmd
}

func (c *CLI) newRunCmd() *cobra.Command {
	var projects []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <task>...",
		Short: "Run the execution plan of each project",
		Long: `Plan the given phases and goals for each project and execute the plans
concurrently. Goals run the command of their mojo descriptor.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), args, projects, dryRun)
		},
	}

	cmd.Flags().StringSliceVarP(&projects, "project", "p", nil, "projects to run (default: all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the plan items instead of executing them")
	return cmd
}

func (c *CLI) newPhasesCmd() *cobra.Command {
	var lifecycleID string

	cmd := &cobra.Command{
		Use:   "phases",
		Short: "List lifecycle phases",
		Long:  `List the phases of each lifecycle in order, including configured custom phases.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPhases(lifecycleID)
		},
	}

	cmd.Flags().StringVarP(&lifecycleID, "lifecycle", "l", "", "only list this lifecycle (clean, build, site)")
	return cmd
}

func (c *CLI) newRealmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "realms",
		Short: "Show the configured realms",
		Long:  `Display every realm with its strategy, search path, imports and parents.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRealms()
		},
	}
}

func (c *CLI) newResolveCmd() *cobra.Command {
	var resource, all bool

	cmd := &cobra.Command{
		Use:   "resolve <realm> <name>",
		Short: "Resolve a class or resource in a realm",
		Long: `Load a class by its dotted name, or find a resource by its path, the way
the realm's strategy resolves it, and print where it was found.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(args[0], args[1], resource, all)
		},
	}

	cmd.Flags().BoolVarP(&resource, "resource", "r", false, "treat name as a resource path")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every matching resource")
	return cmd
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long:  `Check the configuration, load every realm and project, and resolve the bindings of each project.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate()
		},
	}
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last run of each project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove run state and logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runClean()
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of realmforge",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "realmforge v%s\n", c.config.Version)
		},
	}
}

// Implementation functions

func (c *CLI) runPlan(tasks, projects []string) error {
	ws, err := c.loadWorkspace()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		projects = ws.engine.Projects()
	}

	bold := color.New(color.Bold)
	for _, p := range projects {
		pl, err := ws.engine.Plan(p, tasks)
		if err != nil {
			return err
		}

		fmt.Fprintln(c.output, bold.Sprint(p))
		if pl.Len() == 0 {
			fmt.Fprintln(c.output, "  (nothing to execute)")
		}
		for i, item := range pl.Items() {
			fmt.Fprintf(c.output, "  %2d. %s\n", i+1, item)
		}
		if unsafe := pl.NonThreadSafePlugins(); len(unsafe) > 0 {
			fmt.Fprintf(c.output, "  non-thread-safe: %s\n", strings.Join(unsafe, ", "))
		}
	}
	return nil
}

func (c *CLI) runRun(ctx context.Context, tasks, projects []string, dryRun bool) error {
	ws, err := c.loadWorkspace()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pm := process.NewManager(c.logger)
	if sm, ok := ws.deps.State.(*state.Manager); ok {
		pm.RegisterShutdownHandler(func() { _ = sm.Cleanup() })
	}
	ctx = pm.Start(ctx)
	defer pm.Stop()

	results, runErr := ws.engine.Run(ctx, tasks, c.mojoExecutor(ws, dryRun), projects...)
	c.printResults(results)
	c.writeMetrics(ws)
	if runErr != nil {
		c.printError(fmt.Sprintf("Run failed: %v", runErr))
		return runErr
	}
	c.printSuccess(fmt.Sprintf("Ran %s for %d project(s)", strings.Join(tasks, " "), len(results)))
	return nil
}

func (c *CLI) mojoExecutor(ws *workspace, dryRun bool) plan.MojoExecutor {
	if dryRun {
		return plan.NewDryRunExecutor(c.logger)
	}
	opts := []mojo.Option{mojo.WithLogFS(ws.deps.FS)}
	for _, p := range ws.engine.Projects() {
		opts = append(opts, mojo.WithProjectDir(p, ws.engine.ProjectDir(p)))
	}
	return mojo.NewCommandExecutor(ws.deps.Registry, ws.root(), c.logger, opts...)
}

func (c *CLI) printResults(results []plan.Result) {
	if len(results) == 0 {
		return
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tSTATUS\tEXECUTED\tDURATION\tFAILED GOAL")
	fmt.Fprintln(w, "-------\t------\t--------\t--------\t-----------")
	for _, r := range results {
		failed := "-"
		if r.Failed != nil {
			failed = lifecycle.MojoBindingString(r.Failed.Binding)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.Project,
			statusString(r.Status),
			r.Executed,
			notifier.FormatDuration(r.Duration),
			failed,
		)
	}
	w.Flush()
}

// writeMetrics exports the run metrics when the configuration enables them
func (c *CLI) writeMetrics(ws *workspace) {
	m := ws.config.Metrics
	if m == nil || !m.Enabled {
		return
	}
	path := m.File
	if path == "" {
		path = metrics.DefaultTextfile
	}
	path = config.ResolvePath(ws.configPath, path)
	if err := metrics.WriteTextfile(path); err != nil {
		c.printWarning(fmt.Sprintf("Metrics not written: %v", err))
		return
	}
	c.logger.Debug("Wrote metrics", logger.WithField("path", path))
}

func statusString(status types.RunStatus) string {
	s := string(status)
	switch status {
	case types.RunStatusSucceeded:
		return color.GreenString(s)
	case types.RunStatusFailed:
		return color.RedString(s)
	case types.RunStatusRunning:
		return color.YellowString(s)
	default:
		return color.WhiteString(s)
	}
}

func (c *CLI) runPhases(lifecycleID string) error {
	kinds := lifecycle.Kinds
	if lifecycleID != "" {
		kind, ok := lifecycle.ParseKind(lifecycleID)
		if !ok {
			return fmt.Errorf("unknown lifecycle: %s", lifecycleID)
		}
		kinds = []lifecycle.Kind{kind}
	}

	var opts []plan.BuildOption
	custom := make(map[string]bool)
	if cfg, _, err := c.loadConfig(); err == nil {
		for _, cp := range cfg.Lifecycle.CustomPhases {
			opts = append(opts, plan.WithInsertedPhase(cp.After, cp.Name))
			custom[cp.Name] = true
		}
	} else {
		c.logger.Debug(fmt.Sprintf("No usable configuration, listing standard phases: %v", err))
	}

	for _, kind := range kinds {
		order, err := plan.PhaseOrder(kind, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.output, color.New(color.Bold).Sprintf("%s:", kind))
		for _, phase := range order {
			if custom[phase] {
				fmt.Fprintf(c.output, "  %s %s\n", phase, color.CyanString("(custom)"))
				continue
			}
			fmt.Fprintf(c.output, "  %s\n", phase)
		}
	}
	return nil
}

func (c *CLI) runRealms() error {
	ws, err := c.loadWorkspace()
	if err != nil {
		return err
	}
	for _, r := range ws.engine.World().Realms() {
		r.Display(c.output)
	}
	return nil
}

func (c *CLI) runResolve(realmID, name string, resource, all bool) error {
	ws, err := c.loadWorkspace()
	if err != nil {
		return err
	}
	r, err := ws.engine.World().GetRealm(realmID)
	if err != nil {
		return err
	}

	if !resource {
		class, err := r.LoadClass(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.output, "%s\trealm=%s\tlocation=%s\n", class.Name, class.Realm, class.Resource.Location)
		return nil
	}

	if all {
		found := r.GetResources(name)
		if len(found) == 0 {
			return fmt.Errorf("resource not found in realm %s: %s", realmID, name)
		}
		for _, res := range found {
			fmt.Fprintf(c.output, "%s\tentry=%s\tlocation=%s\n", res.Name, res.Entry, res.Location)
		}
		return nil
	}

	res, ok := r.GetResource(name)
	if !ok {
		return fmt.Errorf("resource not found in realm %s: %s", realmID, name)
	}
	fmt.Fprintf(c.output, "%s\tentry=%s\tlocation=%s\n", res.Name, res.Entry, res.Location)
	return nil
}

func (c *CLI) runValidate() error {
	cfg, configPath, err := c.loadConfig()
	if err != nil {
		c.printError(fmt.Sprintf("Configuration is invalid: %v", err))
		return err
	}
	ws, err := c.newWorkspace(cfg, configPath)
	if err != nil {
		c.printError(fmt.Sprintf("Workspace failed to load: %v", err))
		return err
	}

	var errs, warnings []string
	if loader := ws.engine.Loader(); loader != nil {
		if _, err := loader.Packagings(); err != nil {
			errs = append(errs, fmt.Sprintf("Lifecycle template: %v", err))
		}
	} else {
		warnings = append(warnings, "No lifecycle template configured, only project bindings are planned")
	}

	for _, p := range ws.engine.Projects() {
		res, err := ws.engine.Resolve(p)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Project '%s': %v", p, err))
			continue
		}
		for _, b := range res.Unbindable {
			warnings = append(warnings, fmt.Sprintf("Project '%s': goal %s has no phase", p, lifecycle.MojoBindingString(b)))
		}
	}

	if len(errs) > 0 {
		c.printError("Configuration has errors:")
		for _, e := range errs {
			fmt.Fprintf(c.output, "  ✗ %s\n", e)
		}
	}
	if len(warnings) > 0 {
		c.printWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(c.output, "  ⚠ %s\n", w)
		}
	}

	if len(errs) == 0 {
		c.printSuccess("Configuration is valid")
		return nil
	}
	return fmt.Errorf("configuration has %d error(s)", len(errs))
}

func (c *CLI) runStatus() error {
	root := filepath.Dir(c.getConfigPath())
	states, err := state.NewManager(osfs.New(root), c.logger).DiscoverStates()
	if err != nil {
		return fmt.Errorf("failed to discover states: %w", err)
	}
	if len(states) == 0 {
		c.printWarning("No runs recorded. Run 'realmforge run <task>' first.")
		return nil
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tSTATUS\tLAST RUN\tRUNS\tFAILURES\tTASKS")
	fmt.Fprintln(w, "-------\t------\t--------\t----\t--------\t-----")
	for _, st := range states {
		lastRun := "-"
		if !st.LastRunTime.IsZero() {
			lastRun = st.LastRunTime.Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			st.Project,
			statusString(st.Status),
			lastRun,
			st.RunCount,
			st.FailureCount,
			strings.Join(st.Tasks, " "),
		)
	}
	w.Flush()
	return nil
}

func (c *CLI) runClean() error {
	root := filepath.Dir(c.getConfigPath())
	if err := util.RemoveAll(osfs.New(root), filepath.Dir(state.Dir)); err != nil {
		return fmt.Errorf("failed to remove state directory: %w", err)
	}
	c.printSuccess("Removed run state and logs")
	return nil
}

// workspace is a loaded engine together with its configuration
type workspace struct {
	engine     *engine.Engine
	deps       engine.Dependencies
	config     *types.RealmforgeConfig
	configPath string
}

func (w *workspace) root() string { return filepath.Dir(w.configPath) }

func (c *CLI) loadWorkspace() (*workspace, error) {
	cfg, configPath, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return c.newWorkspace(cfg, configPath)
}

// newWorkspace builds and loads an engine rooted at the directory of the
// configuration file
func (c *CLI) newWorkspace(cfg *types.RealmforgeConfig, configPath string) (*workspace, error) {
	deps := engine.NewDependencyFactory(filepath.Dir(configPath), c.logger, cfg).CreateWithOverrides(c.overrides)
	e := engine.New(cfg, configPath, c.logger, deps)
	if err := e.Load(); err != nil {
		return nil, err
	}
	return &workspace{engine: e, deps: deps, config: cfg, configPath: configPath}, nil
}
