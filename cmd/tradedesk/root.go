package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tradedesk/internal/config"
	"tradedesk/internal/errs"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

// banner heads the root help text only, so quote output stays parseable.
var banner = strings.Join([]string{
	" _____              _      ____            _",
	"|_   _| __ __ _  __| | ___|  _ \\  ___  ___| | __",
	"  | || '__/ _` |/ _` |/ _ \\ | | |/ _ \\/ __| |/ /",
	"  | || | | (_| | (_| |  __/ |_| |  __/\\__ \\   <",
	"  |_||_|  \\__,_|\\__,_|\\___|____/ \\___||___/_|\\_\\",
}, "\n")

type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath    string
	directoryPath string
	logLevel      string
	timeout       time.Duration

	cfg config.Config

	// replaced in tests
	buildProvider providerFactory
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:        stdout,
		stderr:        stderr,
		buildProvider: buildProvider,
	}
}

// execute runs the command line and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return errs.ExitOK
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return errs.ExitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tradedesk",
		Short:         "Look up current stock prices by ticker or company name",
		Long:          banner + "\n\nLook up current stock prices by ticker or company name.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return errs.Usagef("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML or JSON config file")
	pf.StringVar(&a.directoryPath, "directory", "", "extra company directory (CSV, YAML or SQLite)")
	pf.DurationVar(&a.timeout, "timeout", 0, "request timeout, e.g. 5s (default from config)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(a.searchCmd(), a.versionCmd())
	return root
}

// setup loads config and applies flag overrides. Flags win over env, env
// wins over the config file.
func (a *app) setup(cmd *cobra.Command) error {
	log.SetOutput(a.stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.WarnLevel)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return errs.Usagef("config: %v", err)
	}

	flags := cmd.Flags()
	if flags.Changed("directory") {
		cfg.Directory = a.directoryPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("timeout") {
		secs := int(a.timeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		cfg.RequestTimeoutSec = secs
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errs.Usagef("log level: %v", err)
	}
	log.SetLevel(level)

	a.cfg = cfg
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  noArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.stdout, "tradedesk %s\n", version)
			return err
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errs.Usagef("%s takes no arguments, got %q", cmd.CommandPath(), args[0])
	}
	return nil
}
