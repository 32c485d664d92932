// Package git provides Git operations for publish-prerelease.
//
// All Git operations are performed via os/exec calls to the git binary.
// This approach:
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Picks up the user's remotes, credentials and hooks for the push
//
// The Manager struct provides checkout and push along with repository
// queries; Repository binds a Manager to one working tree.
package git
