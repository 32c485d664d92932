// Package prompt asks the user to confirm a release plan.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/shinji-kodama/publish-prerelease/internal/model"
)

// DefaultAffirmations are the answers accepted as "yes". Matching is exact
// and case-sensitive: "Y" and "YeS" decline.
var DefaultAffirmations = []string{
	"y", "yes", "YES", "Yes", "OK", "Ok", "ok", "peace", "np", "almost",
}

// IsAffirmative reports whether answer, with surrounding whitespace
// removed, is one of allow.
func IsAffirmative(answer string, allow []string) bool {
	return slices.Contains(allow, strings.TrimSpace(answer))
}

// Warning precedes the question.
const Warning = "The next command will increment version, commit, publish and push your changes."

// Confirmer shows a plan and reads a single answer line.
type Confirmer struct {
	in           *bufio.Reader
	out          io.Writer
	affirmations []string
	warn         *color.Color
}

// NewConfirmer creates a Confirmer reading from in and writing to out.
// A nil or empty affirmations list means DefaultAffirmations.
func NewConfirmer(in io.Reader, out io.Writer, affirmations []string) *Confirmer {
	if len(affirmations) == 0 {
		affirmations = DefaultAffirmations
	}
	return &Confirmer{
		in:           bufio.NewReader(in),
		out:          out,
		affirmations: affirmations,
		warn:         color.New(color.FgYellow, color.Bold),
	}
}

// Confirm prints the plan and waits for an answer. It returns true only for
// an answer on the allow-list. End of input without an answer declines.
// If ctx is cancelled while waiting, the context error is returned.
func (c *Confirmer) Confirm(ctx context.Context, plan model.Plan) (bool, error) {
	c.render(plan)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("failed to read confirmation: %w", a.err)
		}
		if errors.Is(a.err, io.EOF) {
			// Keep the terminal tidy when input ended without a newline.
			fmt.Fprintln(c.out)
		}
		return IsAffirmative(a.line, c.affirmations), nil
	}
}

func (c *Confirmer) render(plan model.Plan) {
	fmt.Fprintf(c.out, "npm version will be: %s\n\n", plan.Version)
	fmt.Fprintf(c.out, "  Branch:   %s\n", plan.Branch)
	fmt.Fprintf(c.out, "  Tag:      %s\n", plan.Tag)
	fmt.Fprintf(c.out, "  Current:  %s\n", plan.Current)
	fmt.Fprintf(c.out, "  Next:     %s\n\n", plan.Version)
	fmt.Fprintln(c.out, "  Pending actions:")
	for i, a := range plan.Actions {
		fmt.Fprintf(c.out, "    %d. %s\n", i+1, a.Describe(&plan))
	}
	fmt.Fprintln(c.out)

	_, _ = c.warn.Fprintln(c.out, Warning)
	fmt.Fprintf(c.out, "Are you sure you want to publish branch '%s' as %s | %s (y/n) >> ",
		plan.Branch, plan.Spec(), plan.TagSpec())
}

// Interactive reports whether f is attached to a terminal. A confirmation
// read from a pipe still works, but callers may want to say so.
func Interactive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
