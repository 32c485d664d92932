// Package npm runs the npm commands of a release: bumping the package
// version and publishing it under a distribution tag.
//
// npm's own output is streamed straight to the user (npm prompts for
// one-time passwords during publish, and prints the packed tarball summary),
// so nothing is captured except for error classification.
package npm

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/publish-prerelease/internal/model"
)

// DefaultBinary is the npm executable looked up on PATH.
const DefaultBinary = "npm"

// Client invokes npm in a package directory.
type Client struct {
	// Binary is the npm executable. Empty means DefaultBinary.
	Binary string

	// Dir is the package directory npm runs in.
	Dir string

	// Stdin, Stdout and Stderr are connected to the npm process. Nil
	// values fall back to the process's standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger may be nil.
	Logger logrus.FieldLogger
}

// NewClient creates a Client for the package in dir.
func NewClient(binary, dir string, logger logrus.FieldLogger) *Client {
	return &Client{Binary: binary, Dir: dir, Logger: logger}
}

// BumpAndCommit sets the package version, commits the manifest change and
// creates the git tag for it, all in one `npm version <version>`.
func (c *Client) BumpAndCommit(ctx context.Context, version string) error {
	return c.run(ctx, "version", version)
}

// Publish publishes the package under the distribution tag.
func (c *Client) Publish(ctx context.Context, tag string) error {
	return c.run(ctx, "publish", "--tag", tag)
}

func (c *Client) run(ctx context.Context, args ...string) error {
	binary := c.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	if c.Logger != nil {
		c.Logger.WithFields(logrus.Fields{
			"dir":  c.Dir,
			"args": strings.Join(args, " "),
		}).Debug("running npm")
	}

	// #nosec G204 -- the binary comes from configuration, args are built here
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = c.Dir
	cmd.Stdin = orReader(c.Stdin, os.Stdin)
	cmd.Stdout = orWriter(c.Stdout, os.Stdout)
	cmd.Stderr = orWriter(c.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("npm %s failed", strings.Join(args, " "))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.WrapCLIError(model.ExitInterrupted, message, ctxErr)
		}
		return model.WrapCLIError(model.ExitRegistryError, message, err)
	}
	return nil
}

func orReader(r, fallback io.Reader) io.Reader {
	if r == nil {
		return fallback
	}
	return r
}

func orWriter(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
