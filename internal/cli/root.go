// Package cli implements the cobra-based CLI commands for publish-prerelease.
//
// Each subcommand (publish, next) is defined in its own file within this
// package. This file defines the root command that serves as the parent for
// all subcommands and handles global flags and error output.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/publish-prerelease/internal/config"
	"github.com/shinji-kodama/publish-prerelease/internal/git"
	"github.com/shinji-kodama/publish-prerelease/internal/logging"
	"github.com/shinji-kodama/publish-prerelease/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command.
var (
	// jsonOutput prints command results as JSON on stdout. Prompts and
	// npm output move to stderr so stdout stays machine-readable.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// configPath overrides the .prerelease.yml lookup.
	configPath string

	// workDir is the directory to run in instead of the current one.
	workDir string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "publish-prerelease",
		Short: "Publish an npm pre-release from a git branch",
		Long: `publish-prerelease checks out a branch, computes the next pre-release
version for a distribution tag, and after confirmation bumps the package
version, publishes it under the tag and pushes the release commit.

A version that is not on the tag's track yet starts a new one
(4.1.12 -> 5.0.0-next.0); a version already on it is incremented
(5.0.0-next.0 -> 5.0.0-next.1).`,

		// We handle usage and error output ourselves.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: <repo>/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Run as if started in this directory")

	rootCmd.AddCommand(NewPublishCommand())
	rootCmd.AddCommand(NewNextCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	os.Exit(int(run(ctx, rootCmd, os.Stderr)))
}

// run executes rootCmd and translates its error into an exit code,
// printing the error to stderr.
func run(ctx context.Context, rootCmd *cobra.Command, stderr io.Writer) model.ExitCode {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	switch {
	case errors.As(err, &cliErr):
		printError(stderr, cliErr.Message, cliErr.Err)
		return cliErr.Code
	case errors.Is(err, context.Canceled):
		printError(stderr, "interrupted", nil)
		return model.ExitInterrupted
	default:
		printError(stderr, err.Error(), nil)
		return model.ExitGeneralError
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// environment is what every command needs before doing anything: where the
// repository is, its configuration, and a logger.
type environment struct {
	dir      string
	repoRoot string
	cfg      *config.Config
	git      *git.Manager
	logger   *logrus.Logger
}

// loadEnvironment resolves the working directory, the repository root and
// the configuration. It performs no writes.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	logger := logging.New(cmd.ErrOrStderr(), verbose)

	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to resolve directory", err)
	}

	// The git binary may itself be configured, but the config file lives in
	// the repository root, so the root is found with the default binary.
	probe := git.NewManager(git.DefaultBinary, logger)
	repoRoot, err := probe.RepoRoot(cmd.Context(), dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGitError, "not inside a Git repository", err)
	}

	path := configPath
	if path == "" {
		path = config.Path(repoRoot)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid configuration", err)
	}

	logger.WithFields(logrus.Fields{
		"dir":    dir,
		"repo":   repoRoot,
		"config": cfg.Source,
	}).Debug("environment resolved")

	return &environment{
		dir:      dir,
		repoRoot: repoRoot,
		cfg:      cfg,
		git:      git.NewManager(cfg.Git, logger),
		logger:   logger,
	}, nil
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}
