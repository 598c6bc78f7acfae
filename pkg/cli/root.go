// Package cli provides the command-line interface for realmforge
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/realmforge/realmforge/internal/engine"
	"github.com/realmforge/realmforge/pkg/config"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configNames are tried in order when no --config flag is given
var configNames = []string{
	config.DefaultConfigFile,
	"realmforge.config.yml",
	"realmforge.config.json",
}

// CLI encapsulates the command-line interface
type CLI struct {
	config    *Config
	rootCmd   *cobra.Command
	viper     *viper.Viper
	logger    logger.Logger
	output    io.Writer
	errorOut  io.Writer
	overrides engine.Dependencies
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(config *Config) *CLI {
	if config == nil {
		config = NewConfig()
	}

	cli := &CLI{
		config:   config,
		viper:    viper.New(),
		logger:   logger.NewNopLogger(),
		output:   os.Stdout,
		errorOut: os.Stderr,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(config *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(config)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// WithDependencies replaces engine dependencies for every command. Fields
// left nil are built from the configuration.
func (c *CLI) WithDependencies(deps engine.Dependencies) *CLI {
	c.overrides = deps
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "realmforge",
		Short: "Namespace-isolated realms and lifecycle execution plans",
		Long: `realmforge builds isolated resolution realms from a workspace configuration,
resolves the lifecycle bindings of each project and runs their execution plans
concurrently.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("realmforge v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newPlanCmd())
	c.rootCmd.AddCommand(c.newRunCmd())
	c.rootCmd.AddCommand(c.newPhasesCmd())
	c.rootCmd.AddCommand(c.newRealmsCmd())
	c.rootCmd.AddCommand(c.newResolveCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newCleanCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", c.config.ConfigFile, "config file (default: realmforge.config.yaml)")
	flags.StringVar(&c.config.ProjectRoot, "root", c.config.ProjectRoot, "project root directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", c.config.Verbosity, "log level (debug, info, warn, error)")
}

// initializeConfig lets REALMFORGE_* environment variables fill flags the
// user did not set, then creates the logger
func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	c.viper.SetEnvPrefix("REALMFORGE")
	c.viper.AutomaticEnv()
	if err := c.viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	c.config.ConfigFile = c.viper.GetString("config")
	c.config.ProjectRoot = c.viper.GetString("root")
	c.config.Verbosity = c.viper.GetString("verbosity")

	c.logger = logger.CreateLoggerWithOutput("", c.config.Verbosity, c.errorOut)
	return nil
}

// Helper methods for structured output

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.GreenString("[realmforge]"), message)
}

func (c *CLI) printError(message string) {
	fmt.Fprintf(c.errorOut, "%s %s\n", color.RedString("[realmforge]"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.CyanString("[realmforge]"), message)
}

func (c *CLI) printWarning(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.YellowString("[realmforge]"), message)
}

// getConfigPath returns the absolute path of the configuration file. The
// path is absolute so realm search paths resolve independently of the
// working directory.
func (c *CLI) getConfigPath() string {
	path := c.config.ConfigFile
	if path == "" {
		path = filepath.Join(c.config.ProjectRoot, configNames[0])
		for _, name := range configNames {
			candidate := filepath.Join(c.config.ProjectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (c *CLI) loadConfig() (*types.RealmforgeConfig, string, error) {
	configPath := c.getConfigPath()
	cfg, err := config.NewManager().LoadConfig(configPath)
	if err != nil {
		return nil, configPath, err
	}
	if l := cfg.Logging; l != nil && l.File != "" {
		c.logger = logger.CreateLogger(config.ResolvePath(configPath, l.File), c.config.Verbosity)
	}
	return cfg, configPath, nil
}

// ExecuteWithVersion runs the CLI on os.Args
func ExecuteWithVersion(version string) error {
	config := NewConfig()
	config.Version = version
	return NewCLI(config).Execute(os.Args[1:])
}
