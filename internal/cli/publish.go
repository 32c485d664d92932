// Package cli — publish.go implements the "publish-prerelease publish" command.
//
// Orchestration steps:
//  1. Resolve repository, configuration and flags
//  2. Check out <branch>
//  3. Read the manifest and compute the next pre-release version for <tag>
//  4. Show the plan and ask for confirmation
//  5. On "yes": npm version, npm publish --tag, git push
//  6. Output results (text or JSON)
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/publish-prerelease/internal/config"
	"github.com/shinji-kodama/publish-prerelease/internal/manifest"
	"github.com/shinji-kodama/publish-prerelease/internal/model"
	"github.com/shinji-kodama/publish-prerelease/internal/npm"
	"github.com/shinji-kodama/publish-prerelease/internal/prompt"
	"github.com/shinji-kodama/publish-prerelease/internal/release"
	"github.com/shinji-kodama/publish-prerelease/internal/version"
)

// publishFlags holds the flag values for the publish command.
type publishFlags struct {
	loose           bool   // --loose: skip argument validation
	bump            string // --bump: increment that starts a new track
	manifest        string // --manifest: manifest path
	noDeclineNotice bool   // --no-decline-notice: stay silent on "no"
}

// NewPublishCommand creates the "publish" cobra command.
func NewPublishCommand() *cobra.Command {
	flags := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish <branch> <tag>",
		Short: "Check out a branch and publish it as the next pre-release for a tag",
		Long: `Check out <branch>, compute the next pre-release version for <tag> and,
after confirmation:

  1. npm version <version>       (bump, commit and tag)
  2. npm publish --tag <tag>
  3. git push --follow-tags

The branch is checked out before the prompt and stays checked out if you
decline. Nothing is rolled back if a step fails.

Examples:
  publish-prerelease publish develop next
  publish-prerelease publish byoc-safe byoc
  publish-prerelease publish --bump preminor develop next`,

		// Missing arguments are reported by the release itself so that the
		// loose mode can let them through.
		Args: cobra.MaximumNArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, argAt(args, 0), argAt(args, 1), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.loose, "loose", false, "Do not require <branch> and <tag>")
	cmd.Flags().StringVar(&flags.bump, "bump", "", "Increment that starts a new pre-release track: premajor, preminor, prepatch (default: premajor)")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "Path to package.json (default: <repo>/package.json)")
	cmd.Flags().BoolVar(&flags.noDeclineNotice, "no-decline-notice", false, "Print nothing when the prompt is declined")

	return cmd
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// runPublish wires the real collaborators into a release and runs it.
func runPublish(cmd *cobra.Command, branch, tag string, flags *publishFlags) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	opts, err := releaseOptions(env.cfg, flags)
	if err != nil {
		return err
	}

	manifestPath := resolveManifest(env, flags.manifest)
	env.logger.WithField("manifest", manifestPath).Debug("manifest resolved")

	// Prompts share stdout with npm in text mode; in JSON mode both go to
	// stderr and stdout carries only the result.
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		out = cmd.ErrOrStderr()
	}
	opts.Out = out
	opts.Logger = env.logger

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !prompt.Interactive(f) {
		env.logger.Warn("stdin is not a terminal; the confirmation is read from it anyway")
	}
	confirmer := prompt.NewConfirmer(in, out, env.cfg.Affirmations)

	registry := npm.NewClient(env.cfg.NPM, filepath.Dir(manifestPath), env.logger)
	registry.Stdin = in
	registry.Stdout = out
	registry.Stderr = cmd.ErrOrStderr()

	orchestrator := release.New(
		env.git.Open(env.repoRoot),
		registry,
		manifest.File{Path: manifestPath},
		version.Semver{},
		confirmer.Confirm,
		opts,
	)

	result, err := orchestrator.Run(cmd.Context(), branch, tag)
	if err != nil {
		if errors.Is(err, release.ErrMissingArgs) {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return model.WrapCLIError(model.ExitUsage, "missing arguments", err)
		}
		return err
	}

	printPublishResult(cmd.OutOrStdout(), result)
	return nil
}

// releaseOptions merges the configuration file with command flags.
// Flags win.
func releaseOptions(cfg *config.Config, flags *publishFlags) (release.Options, error) {
	opts := release.Options{
		StrictArgs:    cfg.StrictArgs && !flags.loose,
		DeclineNotice: cfg.DeclineNotice && !flags.noDeclineNotice,
		Bump:          cfg.Bump,
		Package:       cfg.Package,
	}
	if flags.bump != "" {
		kind, err := config.ParseBump(flags.bump)
		if err != nil {
			return opts, model.WrapCLIError(model.ExitUsage, "invalid --bump", err)
		}
		opts.Bump = kind
	}
	return opts, nil
}

// resolveManifest picks the manifest path. A --manifest flag is relative to
// the working directory; the configured path is relative to the repository
// root.
func resolveManifest(env *environment, flagPath string) string {
	if flagPath != "" {
		return manifest.Resolve(env.dir, flagPath)
	}
	return manifest.Resolve(env.repoRoot, env.cfg.Manifest)
}

// printPublishResult outputs the publish result in text or JSON format.
// Nothing is printed in text mode for a declined release; the decline
// notice, if enabled, has already been shown.
func printPublishResult(w io.Writer, result *model.Result) {
	if IsJSONOutput() {
		printJSON(w, result)
		return
	}
	if !result.Published {
		return
	}

	p := result.Plan
	fmt.Fprintf(w, "Published %s\n", p.Spec())
	fmt.Fprintf(w, "  Branch:  %s\n", p.Branch)
	fmt.Fprintf(w, "  Tag:     %s (%s)\n", p.Tag, p.TagSpec())
	fmt.Fprintf(w, "  Version: %s -> %s\n", p.Current, p.Version)
}
