package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/realmforge/realmforge/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterTemplate binds the standard goals of the pom and jar packagings
const starterTemplate = `packagings:
  - packaging: pom
    build:
      install:
        - plugin: org.example:install-plugin:1.0
          goal: install
      deploy:
        - plugin: org.example:deploy-plugin:1.0
          goal: deploy
  - packaging: jar
    clean:
      clean:
        - plugin: org.example:clean-plugin:1.0
          goal: clean
    build:
      compile:
        - plugin: org.example:compiler-plugin:1.0
          goal: compile
      test:
        - plugin: org.example:surefire-plugin:1.0
          goal: test
      package:
        - plugin: org.example:jar-plugin:1.0
          goal: jar
`

const starterProject = `groupId: org.example
artifactId: app
version: 1.0.0
packaging: jar
`

func (c *CLI) newInitCmd() *cobra.Command {
	var format string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new realmforge workspace",
		Long: `Write a realmforge configuration in the project root together with a
starter lifecycle template and project descriptor when they do not exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(format, force)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "configuration format (yaml, json)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	return cmd
}

func (c *CLI) runInit(format string, force bool) error {
	configPath := c.config.ConfigFile
	if configPath == "" {
		name := config.DefaultConfigFile
		if format == "json" {
			name = "realmforge.config.json"
		}
		configPath = filepath.Join(c.config.ProjectRoot, name)
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration already exists. Use --force to overwrite")
	}

	cfg := config.NewManager().GetDefaultConfig()

	var data []byte
	var err error
	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(cfg)
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.printSuccess(fmt.Sprintf("Created configuration at %s", configPath))

	root := filepath.Dir(configPath)
	templatePath := filepath.Join(root, cfg.Realms[0].SearchPath[0], filepath.FromSlash(cfg.Lifecycle.Template))
	if created, err := writeIfMissing(templatePath, starterTemplate); err != nil {
		return err
	} else if created {
		c.printInfo(fmt.Sprintf("Created lifecycle template at %s", templatePath))
	}

	projectPath := filepath.Join(root, cfg.Projects[0].Path)
	if created, err := writeIfMissing(projectPath, starterProject); err != nil {
		return err
	} else if created {
		c.printInfo(fmt.Sprintf("Created project descriptor at %s", projectPath))
	}

	c.printInfo("Edit the configuration to add realms, plugins and projects")
	return nil
}

func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
