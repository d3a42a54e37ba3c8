package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/panbanda/pqinspect/internal/output"
	"github.com/panbanda/pqinspect/internal/service/inspection"
	"github.com/panbanda/pqinspect/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

const stateKey = "state"

// state is built once in the app's Before hook and shared by every command.
type state struct {
	cfg    *config.Config
	source string
	logger *zap.Logger
}

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "pqinspect",
		Usage:    "Power Query M inspection: types, scope and completions at a cursor",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `pqinspect answers editor questions about Power Query M documents:
what is under the cursor, which names are in scope, what type an
expression has and which completions fit the partially typed identifier.

Documents may be incomplete; inspection works on the partial parse.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"PQINSPECT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, yaml (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the document session cache",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging to stderr",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setup(c); err != nil {
				return err
			}
			if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
				cpuFile, err := os.Create(pprofPrefix + ".cpu.pprof")
				if err != nil {
					return fmt.Errorf("failed to create CPU profile: %w", err)
				}
				if err := pprof.StartCPUProfile(cpuFile); err != nil {
					cpuFile.Close()
					return fmt.Errorf("failed to start CPU profile: %w", err)
				}
				c.App.Metadata["pprofCPU"] = cpuFile
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if st, ok := c.App.Metadata[stateKey].(*state); ok {
				_ = st.logger.Sync()
			}
			if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
				pprof.StopCPUProfile()
				if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
					cpuFile.Close()
					color.Green("CPU profile written to %s.cpu.pprof", pprofPrefix)
				}

				memFile, err := os.Create(pprofPrefix + ".mem.pprof")
				if err != nil {
					return fmt.Errorf("failed to create memory profile: %w", err)
				}
				defer memFile.Close()

				runtime.GC()
				if err := pprof.WriteHeapProfile(memFile); err != nil {
					return fmt.Errorf("failed to write memory profile: %w", err)
				}
				color.Green("Memory profile written to %s.mem.pprof", pprofPrefix)
			}
			return nil
		},
		Commands: []*cli.Command{
			typeCmd(),
			scopeCmd(),
			completeCmd(),
			activeCmd(),
			checkCmd(),
			symbolsCmd(),
			configCmd(),
			mcpCmd(),
		},
	}
}

// setup loads the config and builds the logger.
func setup(c *cli.Context) error {
	var cfg *config.Config
	source := ""
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg, source = loaded, path
	} else {
		cfg = config.LoadOrDefault()
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}

	logger, err := newLogger(cfg.Logging.Level, c.Bool("verbose"))
	if err != nil {
		return err
	}
	c.App.Metadata[stateKey] = &state{cfg: cfg, source: source, logger: logger}
	return nil
}

// newLogger builds a console logger on stderr. Verbose forces debug level
// and stack traces on errors.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Development = false
	zc.DisableStacktrace = true
	zc.DisableCaller = true
	return zc.Build()
}

func appState(c *cli.Context) *state {
	if st, ok := c.App.Metadata[stateKey].(*state); ok {
		return st
	}
	return &state{cfg: config.DefaultConfig(), logger: zap.NewNop()}
}

// newService creates the inspection service from the loaded config.
func newService(c *cli.Context) (*inspection.Service, error) {
	st := appState(c)
	return inspection.New(
		inspection.WithConfig(st.cfg),
		inspection.WithLogger(st.logger),
	)
}

// newFormatter creates a formatter for the --format and --output flags,
// writing to the app's writer when no file is given.
func newFormatter(c *cli.Context) (*output.Formatter, error) {
	st := appState(c)
	name := c.String("format")
	if name == "" {
		name = st.cfg.Output.Format
	}
	format := output.ParseFormat(name)
	colored := st.cfg.Output.Color && !color.NoColor

	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, appWriter(c), colored), nil
}

func appWriter(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func appErrWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
