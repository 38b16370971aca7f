// Package cmd provides the CLI commands for codeintel.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/config"
	"github.com/codeintel/engine/internal/embed"
	"github.com/codeintel/engine/internal/logging"
	"github.com/codeintel/engine/internal/profiling"
	"github.com/codeintel/engine/pkg/codeintel"
	"github.com/codeintel/engine/pkg/version"
)

// Debug logging and profiling flags.
var (
	debugMode      bool
	loggingCleanup func()

	profileCPUPath string
	profileMemPath string
	profiler       = profiling.NewProfiler()
	stopCPUProfile func()
)

// NewRootCmd creates the root command for the codeintel CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codeintel",
		Short: "Semantic code intelligence for AI coding assistants",
		Long: `codeintel indexes a codebase into symbols and call-graph edges,
then answers three kinds of questions over them: hybrid search
(search), blast-radius analysis (impact), and branch comparison
(diff).

It runs entirely locally, storing its index in .codeintel/ under the
project root.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("codeintel version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.codeintel/logs/")
	cmd.PersistentFlags().String("branch", "main", "Branch to operate on")
	cmd.PersistentFlags().StringVar(&profileCPUPath, "profile-cpu", "", "Write a CPU profile to this path")
	cmd.PersistentFlags().StringVar(&profileMemPath, "profile-mem", "", "Write a heap profile to this path on exit")

	cmd.PersistentPreRunE = runPersistentPreChecks
	cmd.PersistentPostRunE = runPersistentPostChecks

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newImpactCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newMetricsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func runPersistentPreChecks(cmd *cobra.Command, args []string) error {
	if err := startLogging(cmd, args); err != nil {
		return err
	}
	return startProfiling(cmd, args)
}

func runPersistentPostChecks(cmd *cobra.Command, args []string) error {
	stopProfiling(cmd, args)
	return stopLogging(cmd, args)
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))

	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// startProfiling begins CPU profiling when --profile-cpu is set. The heap
// profile, if requested via --profile-mem, is written on exit in
// stopProfiling instead, since it is a point-in-time snapshot.
func startProfiling(_ *cobra.Command, _ []string) error {
	if profileCPUPath == "" {
		return nil
	}
	cleanup, err := profiler.StartCPU(profileCPUPath)
	if err != nil {
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	stopCPUProfile = cleanup
	return nil
}

func stopProfiling(_ *cobra.Command, _ []string) {
	if stopCPUProfile != nil {
		stopCPUProfile()
		stopCPUProfile = nil
	}
	if profileMemPath != "" {
		_ = profiler.WriteHeap(profileMemPath)
	}
}

// projectRoot resolves the project root from the current directory,
// falling back to the working directory when no .codeintel marker is
// found.
func projectRoot() string {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		cwd, _ := os.Getwd()
		return cwd
	}
	return root
}

// openEngine loads the project's configuration and opens an Engine over
// it, wiring a cached static embedder as the default.
func openEngine(ctx context.Context, branch string) (*codeintel.Engine, string, error) {
	root := projectRoot()

	cfg, err := config.Load(root)
	if err != nil {
		return nil, root, fmt.Errorf("failed to load config: %w", err)
	}

	embedder := embed.NewCachedEmbedderWithDefaults(embed.NewStaticEmbedder(embed.StaticDimensions))

	eng, err := codeintel.Open(ctx, codeintel.Options{
		RootDir:  root,
		Branch:   branch,
		Config:   cfg,
		Embedder: embedder,
	})
	if err != nil {
		return nil, root, fmt.Errorf("failed to open engine: %w", err)
	}
	return eng, root, nil
}
