// Package git provides the version-control operations of a release.
//
// This package wraps Git CLI commands (via os/exec) to check out the release
// branch and push the release commit and tag. It is the Git integration
// layer for publish-prerelease.
//
// Design decisions:
//   - We shell out to `git` rather than using a Go Git library, so the push
//     uses exactly the remotes, credentials and hooks the user has set up.
//   - All errors from Git commands are wrapped in model.CLIError with
//     ExitGitError to enable proper CLI exit code handling.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/publish-prerelease/internal/model"
)

// DefaultBinary is the git executable looked up on PATH.
const DefaultBinary = "git"

// Manager provides Git operations by invoking the git CLI.
//
// All methods receive the repository path as a parameter; use Repository to
// bind a Manager to a single working tree.
type Manager struct {
	// Binary is the git executable. Empty means DefaultBinary.
	Binary string

	// Logger receives the output of successful commands at debug level.
	// May be nil.
	Logger logrus.FieldLogger
}

// NewManager creates a Manager for the given git binary.
func NewManager(binary string, logger logrus.FieldLogger) *Manager {
	return &Manager{Binary: binary, Logger: logger}
}

// Checkout switches the working tree at repoPath to branch.
//
// It runs `git checkout <branch>`. An empty branch is passed through as-is
// and git decides what it means.
func (m *Manager) Checkout(ctx context.Context, repoPath, branch string) error {
	_, err := m.run(ctx, repoPath, "checkout", branch)
	return err
}

// Push pushes the current branch to its upstream together with any
// annotated tags reachable from it, which includes the tag created by
// `npm version`.
func (m *Manager) Push(ctx context.Context, repoPath string) error {
	_, err := m.run(ctx, repoPath, "push", "--follow-tags")
	return err
}

// RepoRoot returns the absolute path to the top-level directory of the
// working tree containing path.
func (m *Manager) RepoRoot(ctx context.Context, path string) (string, error) {
	output, err := m.run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CurrentBranch returns the short name of the checked-out branch, or "HEAD"
// when detached.
func (m *Manager) CurrentBranch(ctx context.Context, path string) (string, error) {
	output, err := m.run(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// BranchExists checks whether a ref with the given name resolves in the
// repository.
func (m *Manager) BranchExists(ctx context.Context, repoPath, branch string) bool {
	_, err := m.run(ctx, repoPath, "rev-parse", "--verify", "--quiet", branch)
	return err == nil
}

// run executes a git command with the given arguments in the specified
// directory.
//
// On success it returns stdout. On failure it returns a model.CLIError with
// ExitGitError whose message carries git's stderr.
//
// The repoPath parameter is passed to git via the -C flag, which causes git
// to change to that directory before doing anything else.
func (m *Manager) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	binary := m.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	fullArgs := append([]string{"-C", repoPath}, args...)

	// #nosec G204 -- the binary comes from configuration, args are built here
	cmd := exec.CommandContext(ctx, binary, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", model.WrapCLIError(model.ExitInterrupted,
				fmt.Sprintf("git %s interrupted", strings.Join(args, " ")), ctxErr)
		}
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	if m.Logger != nil {
		m.Logger.WithFields(logrus.Fields{
			"args":   strings.Join(args, " "),
			"stderr": strings.TrimSpace(stderr.String()),
		}).Debug("git command finished")
	}
	return stdout.String(), nil
}

// Repository is a Manager bound to one working tree. It implements the
// release orchestrator's VCS capability.
type Repository struct {
	manager *Manager
	path    string
}

// Open binds m to the working tree at path.
func (m *Manager) Open(path string) *Repository {
	return &Repository{manager: m, path: path}
}

// Path returns the working tree path.
func (r *Repository) Path() string {
	return r.path
}

// Checkout switches the working tree to branch.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	return r.manager.Checkout(ctx, r.path, branch)
}

// Push pushes the current branch and its annotated tags.
func (r *Repository) Push(ctx context.Context) error {
	return r.manager.Push(ctx, r.path)
}
