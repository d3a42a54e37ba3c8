package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/pqinspect/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show, validate or create configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: runConfigShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Description: `Creates a pqinspect.toml with default settings.

Examples:
  pqinspect config init                               # pqinspect.toml in the current directory
  pqinspect config init --path .pqinspect/pqinspect.toml
  pqinspect config init --force                       # overwrite an existing file`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Value: "pqinspect.toml",
						Usage: "Config file to create",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite existing config file",
					},
				},
				Action: runConfigInit,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	st := appState(c)
	w := appWriter(c)

	if st.source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", st.source)
	} else {
		fmt.Fprintln(w, "# Effective configuration")
	}

	content, err := toml.Marshal(*st.cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

func runConfigValidate(c *cli.Context) error {
	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	st := appState(c)
	if err := st.cfg.Validate(); err != nil {
		formatter.Error("Configuration validation failed: %v", err)
		return cli.Exit("", 1)
	}
	if st.source != "" {
		formatter.Success("Configuration valid: %s", st.source)
	} else {
		formatter.Warning("No config file given. Effective configuration is valid.")
	}
	return nil
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("path")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	formatter.Success("Created %s", outputPath)
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := toml.Marshal(*config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# pqinspect configuration\n")
	buf.WriteString("# Documentation: https://github.com/panbanda/pqinspect\n\n")
	buf.Write(content)
	return buf.String(), nil
}
