package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/publish-prerelease/internal/manifest"
	"github.com/shinji-kodama/publish-prerelease/internal/release"
	"github.com/shinji-kodama/publish-prerelease/internal/version"
)

// nextFlags holds the flag values for the next command.
type nextFlags struct {
	bump     string
	manifest string
}

// NewNextCommand creates the "next" cobra command. It prints the version
// `publish` would compute for the checked-out branch, without touching the
// repository or the registry.
func NewNextCommand() *cobra.Command {
	flags := &nextFlags{}

	cmd := &cobra.Command{
		Use:   "next <tag>",
		Short: "Print the next pre-release version for a tag",
		Long: `Print the version that "publish" would compute for <tag> from the manifest
of the current checkout. Nothing is checked out, bumped, published or pushed.

Examples:
  publish-prerelease next next
  publish-prerelease next --bump preminor next
  publish-prerelease next --json byoc`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.bump, "bump", "", "Increment that starts a new pre-release track: premajor, preminor, prepatch (default: premajor)")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "Path to package.json (default: <repo>/package.json)")

	return cmd
}

func runNext(cmd *cobra.Command, tag string, flags *nextFlags) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	opts, err := releaseOptions(env.cfg, &publishFlags{bump: flags.bump})
	if err != nil {
		return err
	}
	opts.Logger = env.logger

	// Planning only reads the manifest; no other collaborator is reached.
	planner := release.New(nil, nil, manifest.File{Path: resolveManifest(env, flags.manifest)}, version.Semver{}, nil, opts)
	plan, err := planner.Plan(currentBranch(cmd, env), tag)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		printJSON(cmd.OutOrStdout(), plan)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), plan.Version)
	return nil
}

// currentBranch returns the checked-out branch, or "" if git cannot tell.
func currentBranch(cmd *cobra.Command, env *environment) string {
	branch, err := env.git.CurrentBranch(cmd.Context(), env.repoRoot)
	if err != nil {
		env.logger.WithError(err).Debug("could not determine current branch")
		return ""
	}
	return branch
}
