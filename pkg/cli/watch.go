package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/realmforge/realmforge/internal/state"
	"github.com/realmforge/realmforge/pkg/config"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/process"
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	var projects []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "watch <task>...",
		Short: "Run tasks and rerun them when the workspace changes",
		Long: `Run the given phases and goals once, then watch the configuration file and
every project descriptor. Each change reloads the workspace and runs again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args, projects, dryRun)
		},
	}

	cmd.Flags().StringSliceVarP(&projects, "project", "p", nil, "projects to run (default: all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the plan items instead of executing them")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, tasks, projects []string, dryRun bool) error {
	ws, err := c.loadWorkspace()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pm := process.NewManager(c.logger)
	ctx = pm.Start(ctx)
	defer pm.Stop()

	rm := config.NewReloadManager(ws.configPath, c.logger)
	for _, pc := range ws.config.Projects {
		if pc.Path != "" {
			rm.AddPath(config.ResolvePath(ws.configPath, pc.Path))
		}
	}

	// Capacity one coalesces changes that arrive while a run is in progress
	reloads := make(chan config.ReloadEvent, 1)
	rm.AddCallback(func(ev config.ReloadEvent) {
		select {
		case reloads <- ev:
		default:
		}
	})
	if err := rm.StartWatching(); err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}
	defer rm.StopWatching()

	c.printInfo(fmt.Sprintf("Watching %s", ws.configPath))
	c.watchRun(ctx, ws, tasks, projects, dryRun)

	for {
		select {
		case <-ctx.Done():
			if sm, ok := ws.deps.State.(*state.Manager); ok {
				if err := sm.Cleanup(); err != nil {
					c.printWarning(fmt.Sprintf("Cleanup error: %v", err))
				}
			}
			c.printSuccess("Stopped watching")
			return nil
		case ev := <-reloads:
			if ev.Error != nil {
				c.printWarning(fmt.Sprintf("Configuration reload failed, keeping previous workspace: %v", ev.Error))
				continue
			}
			next, err := c.newWorkspace(ev.Config, ws.configPath)
			if err != nil {
				c.printWarning(fmt.Sprintf("Workspace reload failed, keeping previous workspace: %v", err))
				continue
			}
			ws = next
			c.logger.Info("Workspace changed", logger.WithField("path", ev.Path))
			c.watchRun(ctx, ws, tasks, projects, dryRun)
		}
	}
}

// watchRun runs once and reports failures without ending the watch
func (c *CLI) watchRun(ctx context.Context, ws *workspace, tasks, projects []string, dryRun bool) {
	results, err := ws.engine.Run(ctx, tasks, c.mojoExecutor(ws, dryRun), projects...)
	c.printResults(results)
	c.writeMetrics(ws)
	if err != nil {
		if ctx.Err() == nil {
			c.printError(fmt.Sprintf("Run failed: %v", err))
		}
		return
	}
	c.printSuccess(fmt.Sprintf("Ran %s for %d project(s)", strings.Join(tasks, " "), len(results)))
}
