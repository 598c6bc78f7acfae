// Package mojo runs plan items as shell commands taken from plugin
// descriptors
package mojo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/plan"
)

// LogDir holds one append-only log per project, relative to the log
// filesystem
const LogDir = ".realmforge/logs"

// CommandExecutor is a plan.MojoExecutor running the command of each goal's
// mojo descriptor. Goals without a command succeed without doing anything.
type CommandExecutor struct {
	registry lifecycle.DescriptorRegistry
	root     string
	dirs     map[string]string
	logs     billy.Filesystem
	env      []string
	logger   logger.Logger
}

var _ plan.MojoExecutor = (*CommandExecutor)(nil)

// Option configures a CommandExecutor
type Option func(*CommandExecutor)

// WithProjectDir sets the working directory of a project, relative to the
// executor root
func WithProjectDir(project, dir string) Option {
	return func(c *CommandExecutor) { c.dirs[project] = dir }
}

// WithLogFS enables per-project log files on fs
func WithLogFS(fs billy.Filesystem) Option {
	return func(c *CommandExecutor) { c.logs = fs }
}

// WithEnv adds KEY=VALUE pairs to every command's environment
func WithEnv(kv ...string) Option {
	return func(c *CommandExecutor) { c.env = append(c.env, kv...) }
}

// NewCommandExecutor creates an executor running commands under root
func NewCommandExecutor(registry lifecycle.DescriptorRegistry, root string, log logger.Logger, opts ...Option) *CommandExecutor {
	c := &CommandExecutor{
		registry: registry,
		root:     root,
		dirs:     make(map[string]string),
		logger:   logger.OrNop(log).WithComponent("mojo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute implements plan.MojoExecutor
func (c *CommandExecutor) Execute(ctx context.Context, project string, item *plan.Item) error {
	command, err := c.command(item.Binding)
	if err != nil {
		return err
	}
	binding := lifecycle.MojoBindingString(item.Binding)
	log := logger.WithContext(ctx, c.logger)
	if command == "" {
		log.Debug("No command for goal", logger.WithField("binding", binding))
		return nil
	}

	start := time.Now()
	logFile, err := c.openLog(project)
	if err != nil {
		log.Warn("Failed to open log file", logger.WithError(err))
	}
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()
	writeLog(logFile, fmt.Sprintf("\n=== %s (%s) started at %s ===\nExecuting: %s\n",
		binding, item.Binding.ExecutionIDOrDefault(), start.Format("2006-01-02 15:04:05"), command))

	cmd := createCommand(ctx, command)
	cmd.Dir = c.workDir(project)
	cmd.Env = append(os.Environ(), c.env...)
	cmd.Env = append(cmd.Env, itemEnv(project, item)...)

	var output bytes.Buffer
	var w io.Writer = &output
	if logFile != nil {
		w = io.MultiWriter(&output, logFile)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err = cmd.Run()
	duration := time.Since(start)
	if err != nil {
		log.Error("Goal failed",
			logger.WithField("binding", binding),
			logger.WithField("output", output.String()),
			logger.WithError(err))
		writeLog(logFile, fmt.Sprintf("=== FAILED after %s: %v ===\n", duration, err))
		return fmt.Errorf("%s failed: %w\n%s", binding, err, output.Bytes())
	}

	log.Success(fmt.Sprintf("%s completed in %s", binding, duration.Round(time.Millisecond)))
	if output.Len() > 0 {
		log.Debug("Goal output", logger.WithField("output", output.String()))
	}
	writeLog(logFile, fmt.Sprintf("=== SUCCEEDED after %s ===\n", duration))
	return nil
}

func (c *CommandExecutor) command(b *lifecycle.MojoBinding) (string, error) {
	if c.registry == nil {
		return "", nil
	}
	desc, err := c.registry.Lookup(b.GroupID, b.ArtifactID, b.Version)
	if err != nil {
		if errors.Is(err, lifecycle.ErrPluginNotFound) {
			return "", nil
		}
		return "", err
	}
	mojo, ok := desc.Mojo(b.Goal)
	if !ok {
		return "", nil
	}
	return mojo.Command, nil
}

func (c *CommandExecutor) workDir(project string) string {
	dir := c.dirs[project]
	if dir == "" {
		return c.root
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.root, dir)
}

// LogPath returns the log file of project on the log filesystem
func LogPath(project string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(project)
	return path.Join(LogDir, name+".log")
}

func (c *CommandExecutor) openLog(project string) (billy.File, error) {
	if c.logs == nil {
		return nil, nil
	}
	if err := c.logs.MkdirAll(LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := c.logs.OpenFile(LogPath(project), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func writeLog(f billy.File, message string) {
	if f != nil {
		_, _ = f.Write([]byte(message))
	}
}

// createCommand runs shell syntax through sh and anything else directly
func createCommand(ctx context.Context, command string) *exec.Cmd {
	if strings.ContainsAny(command, "&|;<>$`\"'") {
		return exec.CommandContext(ctx, "sh", "-c", command)
	}
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return exec.CommandContext(ctx, "sh", "-c", command)
	}
	return exec.CommandContext(ctx, parts[0], parts[1:]...)
}

// itemEnv describes the item to the command. Top-level configuration
// values become REALMFORGE_CONFIG_<NAME>.
func itemEnv(project string, item *plan.Item) []string {
	b := item.Binding
	env := []string{
		"REALMFORGE_PROJECT=" + project,
		"REALMFORGE_PHASE=" + item.Phase,
		"REALMFORGE_GOAL=" + b.Goal,
		"REALMFORGE_PLUGIN=" + b.PluginKey(),
		"REALMFORGE_EXECUTION_ID=" + b.ExecutionIDOrDefault(),
	}
	if b.Configuration == nil {
		return env
	}
	for _, child := range b.Configuration.Children {
		if len(child.Children) > 0 || child.Name == "" {
			continue
		}
		name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(child.Name))
		env = append(env, "REALMFORGE_CONFIG_"+name+"="+child.Value)
	}
	return env
}
