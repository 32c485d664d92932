// Package model defines the domain types for the publish-prerelease CLI.
//
// A release is described by a Plan: the branch to check out, the
// distribution tag, the version read from the manifest and the version that
// will be published. Nothing here is persisted; every value lives for a
// single invocation.
package model

import (
	"fmt"
	"strings"
)

// Action is one of the side effects performed after the user confirms.
// Actions always run in the order returned by PendingActions.
type Action string

const (
	// ActionBump rewrites the manifest version and creates a commit and a
	// git tag for it (npm version).
	ActionBump Action = "bump"

	// ActionPublish publishes the package under the distribution tag.
	ActionPublish Action = "publish"

	// ActionPush pushes the current branch, including the new tag.
	ActionPush Action = "push"
)

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// Describe returns the human-readable line shown in the confirmation prompt.
func (a Action) Describe(p *Plan) string {
	switch a {
	case ActionBump:
		return fmt.Sprintf("bump %s to %s and commit (npm version %s)", p.ManifestName(), p.Version, p.Version)
	case ActionPublish:
		return fmt.Sprintf("publish %s under the %q tag (npm publish --tag %s)", p.Spec(), p.Tag, p.Tag)
	case ActionPush:
		return fmt.Sprintf("push branch %q with tag v%s (git push --follow-tags)", p.Branch, p.Version)
	default:
		return string(a)
	}
}

// PendingActions returns the post-confirmation actions in execution order.
func PendingActions() []Action {
	return []Action{ActionBump, ActionPublish, ActionPush}
}

// Plan is the fully computed release, presented to the user before any
// post-confirmation action runs.
type Plan struct {
	// Package is the package name shown to the user (e.g. "truffle").
	// May be empty when the manifest has no name.
	Package string `json:"package,omitempty"`

	// Branch is the git branch that was checked out.
	Branch string `json:"branch"`

	// Tag is the distribution tag. It is also the pre-release identifier
	// of Version.
	Tag string `json:"tag"`

	// Current is the version read from the manifest.
	Current string `json:"currentVersion"`

	// Version is the computed pre-release version to publish.
	Version string `json:"version"`

	// Actions lists the pending actions in execution order.
	Actions []Action `json:"actions"`
}

// ManifestName returns the package name, or "package" when the manifest
// did not declare one.
func (p *Plan) ManifestName() string {
	if p.Package == "" {
		return "package"
	}
	return p.Package
}

// Spec returns the "name@version" form used in registry output.
func (p *Plan) Spec() string {
	return p.ManifestName() + "@" + p.Version
}

// TagSpec returns the "name@tag" form used in registry output.
func (p *Plan) TagSpec() string {
	return p.ManifestName() + "@" + p.Tag
}

// Result is the outcome of a release run.
type Result struct {
	Plan Plan `json:"plan"`

	// Published is true only when every action completed.
	Published bool `json:"published"`
}

// ExitCode defines the process exit codes of the CLI.
type ExitCode int

const (
	// ExitSuccess indicates the command completed. A declined prompt is
	// also a success.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates missing or invalid command-line arguments.
	ExitUsage ExitCode = 2

	// ExitManifestError indicates the package manifest could not be read
	// or parsed, or carries no usable version.
	ExitManifestError ExitCode = 3

	// ExitGitError indicates a git operation (checkout, push) failed.
	ExitGitError ExitCode = 4

	// ExitRegistryError indicates an npm operation (version, publish) failed.
	ExitRegistryError ExitCode = 5

	// ExitInterrupted indicates the run was cancelled by a signal.
	ExitInterrupted ExitCode = 130
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ValidateTag checks that a distribution tag is usable both as an npm
// dist-tag and as a semver pre-release identifier.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag must not be empty")
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '-' {
			return fmt.Errorf("invalid tag %q: only alphanumerics and hyphens are allowed", tag)
		}
	}
	if strings.Trim(tag, "0123456789") == "" {
		return fmt.Errorf("invalid tag %q: a numeric tag cannot be told apart from a version", tag)
	}
	return nil
}
