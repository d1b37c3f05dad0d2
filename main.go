// archcheck checks compiled JVM artifacts against architecture rules and
// gates the build on the result.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phobologic/archcheck/internal/check"
	"github.com/phobologic/archcheck/internal/config"
	"github.com/phobologic/archcheck/internal/toon"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := rootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		outputDir  string
		logLevel   string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "archcheck [flags] PATH...",
		Short: "Check compiled classes against architecture rules",
		Long: `archcheck imports class files, directories of class files and
jar/zip/war archives, evaluates architecture rules against them and writes
failure-report.txt to the output directory.

The built-in rules check that package slices are free of cycles and that
bean methods returning post-processors are static and do not cause eager
initialization. Further rules can be declared in the config file.

The report is always written, and is empty when every rule passes. Any
violation makes archcheck exit non-zero.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.OutputDir = outputDir
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			log, err := newLogger(stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			summary, err := check.Run(cmd.Context(), check.Options{
				Paths:  args,
				Config: cfg,
				Logger: log,
			})
			if summary != nil && !quiet {
				_, _ = fmt.Fprintln(stdout, toon.Encode(summary))
			}
			return err
		},
	}
	cmd.SetVersionTemplate("archcheck {{.Version}}\n")

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", config.DefaultOutputDir, "directory for failure-report.txt")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the run summary")

	cmd.AddCommand(initCmd(stdout, stderr))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(stdout, "archcheck %s\n", version)
		},
	})
	return cmd
}

// newLogger writes human-readable logs to w.
func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	encoderConfig.CallerKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)
	return zap.New(core), nil
}
