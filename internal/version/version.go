// Package version computes pre-release semantic versions.
//
// Parsing and formatting go through github.com/Masterminds/semver/v3. The
// increment rules follow the npm ecosystem ("semver inc"), because the
// versions produced here are consumed by `npm version` and the registry:
//
//	premajor   4.1.12        -> 5.0.0-0
//	preminor   4.1.12        -> 4.2.0-0
//	prepatch   4.1.12        -> 4.1.13-0
//	prerelease 4.1.12        -> 4.1.13-0
//	prerelease 5.0.0-0, next -> 5.0.0-next.0
//	prerelease 5.0.0-next.0  -> 5.0.0-next.1
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind is an increment kind.
type Kind string

const (
	// Premajor raises the major version and starts a new pre-release.
	Premajor Kind = "premajor"

	// Preminor raises the minor version and starts a new pre-release.
	Preminor Kind = "preminor"

	// Prepatch raises the patch version and starts a new pre-release.
	Prepatch Kind = "prepatch"

	// Prerelease increments the pre-release, moving to the next patch
	// first when the version is not a pre-release yet.
	Prerelease Kind = "prerelease"
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the supported kinds.
func (k Kind) IsValid() bool {
	switch k {
	case Premajor, Preminor, Prepatch, Prerelease:
		return true
	default:
		return false
	}
}

// IsTrackBump reports whether k can start a new pre-release track.
// Prerelease only continues one.
func (k Kind) IsTrackBump() bool {
	return k == Premajor || k == Preminor || k == Prepatch
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("invalid increment kind: %q (valid: premajor, preminor, prepatch, prerelease)", s)
	}
	return k, nil
}

// Increment returns current incremented by kind. A non-empty identifier
// scopes the pre-release ("next" turns 5.0.0-0 into 5.0.0-next.0).
// Build metadata is dropped.
func Increment(current string, kind Kind, identifier string) (string, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(current))
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", current, err)
	}

	var next *semver.Version
	switch kind {
	case Premajor:
		next, err = pre(semver.New(v.Major()+1, 0, 0, "", ""), "", identifier)
	case Preminor:
		next, err = pre(semver.New(v.Major(), v.Minor()+1, 0, "", ""), "", identifier)
	case Prepatch:
		next, err = pre(semver.New(v.Major(), v.Minor(), v.Patch()+1, "", ""), "", identifier)
	case Prerelease:
		if v.Prerelease() == "" {
			next, err = pre(semver.New(v.Major(), v.Minor(), v.Patch()+1, "", ""), "", identifier)
		} else {
			next, err = pre(semver.New(v.Major(), v.Minor(), v.Patch(), "", ""), v.Prerelease(), identifier)
		}
	default:
		return "", fmt.Errorf("unsupported increment kind %q", kind)
	}
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

// pre applies a pre-release increment to the release core, given the
// existing pre-release string (possibly empty).
func pre(core *semver.Version, prerelease, identifier string) (*semver.Version, error) {
	var parts []string
	if prerelease != "" {
		parts = strings.Split(prerelease, ".")
	}

	if len(parts) == 0 {
		parts = []string{"0"}
	} else {
		bumped := false
		for i := len(parts) - 1; i >= 0; i-- {
			if n, ok := numeric(parts[i]); ok {
				parts[i] = strconv.FormatUint(n+1, 10)
				bumped = true
				break
			}
		}
		if !bumped {
			parts = append(parts, "0")
		}
	}

	if identifier != "" {
		if parts[0] != identifier {
			parts = []string{identifier, "0"}
		} else if len(parts) < 2 {
			parts = []string{identifier, "0"}
		} else if _, ok := numeric(parts[1]); !ok {
			parts = []string{identifier, "0"}
		}
	}

	v, err := core.SetPrerelease(strings.Join(parts, "."))
	if err != nil {
		return nil, fmt.Errorf("invalid pre-release identifier %q: %w", identifier, err)
	}
	return &v, nil
}

func numeric(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OnTrack reports whether current is already on the pre-release track of
// tag. The test is a plain substring match against the whole version
// string: a tag that happens to appear inside another identifier, or inside
// the numeric core, also counts as on track.
func OnTrack(current, tag string) bool {
	return strings.Contains(current, tag)
}

// IncrementFunc is the shape of Increment. It lets callers run the release
// algorithm over a substitute incrementer.
type IncrementFunc func(current string, kind Kind, identifier string) (string, error)

// Next returns the version to publish for tag. When current is not on the
// tag's track yet, bump starts a new one (Premajor unless configured
// otherwise); the result is then incremented as a pre-release of tag.
func (inc IncrementFunc) Next(current, tag string, bump Kind) (string, error) {
	if !bump.IsTrackBump() {
		return "", fmt.Errorf("%q cannot start a pre-release track (valid: premajor, preminor, prepatch)", bump)
	}

	base := current
	if !OnTrack(current, tag) {
		var err error
		base, err = inc(current, bump, "")
		if err != nil {
			return "", err
		}
	}
	return inc(base, Prerelease, tag)
}

// Next runs the release algorithm with Increment.
func Next(current, tag string, bump Kind) (string, error) {
	return IncrementFunc(Increment).Next(current, tag, bump)
}

// Semver is the Incrementer backed by this package.
type Semver struct{}

// Increment implements the orchestrator's increment capability.
func (Semver) Increment(current string, kind Kind, identifier string) (string, error) {
	return Increment(current, kind, identifier)
}
