// Package model defines the domain types and value objects for the
// publish-prerelease CLI.
//
// This package contains pure data structures with no external dependencies.
// The Plan describes a release before it happens; the Result records whether
// it was published.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
