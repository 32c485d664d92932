// Package release runs a pre-release publish: check out a branch, compute
// the next pre-release version for a distribution tag, ask for
// confirmation, then bump, publish and push.
//
// Every collaborator is injected through a narrow interface so the ordering
// of side effects can be verified without running git or npm.
package release

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/publish-prerelease/internal/manifest"
	"github.com/shinji-kodama/publish-prerelease/internal/model"
	"github.com/shinji-kodama/publish-prerelease/internal/version"
)

// VCS is the version-control capability.
type VCS interface {
	Checkout(ctx context.Context, branch string) error
	Push(ctx context.Context) error
}

// Registry is the package-registry capability. BumpAndCommit also creates
// the version-control commit and tag for the new version.
type Registry interface {
	BumpAndCommit(ctx context.Context, version string) error
	Publish(ctx context.Context, tag string) error
}

// Manifest loads the current package manifest.
type Manifest interface {
	Load() (*manifest.Package, error)
}

// Incrementer is the semantic-versioning capability.
type Incrementer interface {
	Increment(current string, kind version.Kind, identifier string) (string, error)
}

// ConfirmFunc decides whether the plan goes ahead.
type ConfirmFunc func(ctx context.Context, plan model.Plan) (bool, error)

// ErrMissingArgs is returned in strict mode when the branch or the tag is
// empty. Nothing has been done when it is returned.
var ErrMissingArgs = errors.New("both <branch> and <tag> are required")

// DeclineNotice is printed when the prompt is declined and
// Options.DeclineNotice is set.
const DeclineNotice = "Exiting without publishing."

// Options select between the strict and the loose behaviour.
type Options struct {
	// StrictArgs rejects an empty branch or tag before any side effect.
	// When false both are passed through unchecked.
	StrictArgs bool

	// DeclineNotice prints DeclineNotice to Out when the user declines.
	DeclineNotice bool

	// Bump starts a new pre-release track. Empty means version.Premajor.
	Bump version.Kind

	// Package overrides the manifest's package name in the plan.
	Package string

	// Out receives user-facing notices. Nil discards them.
	Out io.Writer

	// Logger may be nil.
	Logger logrus.FieldLogger
}

// Orchestrator runs releases.
type Orchestrator struct {
	vcs      VCS
	registry Registry
	manifest Manifest
	inc      Incrementer
	confirm  ConfirmFunc
	opts     Options
}

// New creates an Orchestrator.
func New(vcs VCS, registry Registry, m Manifest, inc Incrementer, confirm ConfirmFunc, opts Options) *Orchestrator {
	if opts.Bump == "" {
		opts.Bump = version.Premajor
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		opts.Logger = logger
	}
	return &Orchestrator{
		vcs:      vcs,
		registry: registry,
		manifest: m,
		inc:      inc,
		confirm:  confirm,
		opts:     opts,
	}
}

// Run performs a release of branch under tag.
//
// Order: checkout, manifest read, version computation, confirmation, then
// bump, publish and push. The checkout is not undone when the user declines
// or a later step fails, and a failure after the bump leaves the bump in
// place. Declining is not an error: the Result has Published false.
func (o *Orchestrator) Run(ctx context.Context, branch, tag string) (*model.Result, error) {
	log := o.opts.Logger.WithFields(logrus.Fields{"branch": branch, "tag": tag})

	if o.opts.StrictArgs {
		if branch == "" || tag == "" {
			return nil, ErrMissingArgs
		}
		if err := model.ValidateTag(tag); err != nil {
			return nil, model.WrapCLIError(model.ExitUsage, "invalid tag", err)
		}
	}

	log.Debug("checking out branch")
	if err := o.vcs.Checkout(ctx, branch); err != nil {
		return nil, err
	}

	plan, err := o.Plan(branch, tag)
	if err != nil {
		return nil, err
	}
	log = log.WithFields(logrus.Fields{"current": plan.Current, "version": plan.Version})
	log.Debug("computed release version")

	result := &model.Result{Plan: *plan}

	ok, err := o.confirm(ctx, *plan)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("release declined")
		if o.opts.DeclineNotice {
			fmt.Fprintln(o.opts.Out, DeclineNotice)
		}
		return result, nil
	}

	for _, action := range plan.Actions {
		log.WithField("step", action).Debug("running release step")
		if err := o.perform(ctx, action, plan); err != nil {
			log.WithField("step", action).WithError(err).Error("release step failed")
			return result, err
		}
	}

	result.Published = true
	log.Info("release published")
	return result, nil
}

func (o *Orchestrator) perform(ctx context.Context, action model.Action, plan *model.Plan) error {
	switch action {
	case model.ActionBump:
		return o.registry.BumpAndCommit(ctx, plan.Version)
	case model.ActionPublish:
		return o.registry.Publish(ctx, plan.Tag)
	case model.ActionPush:
		return o.vcs.Push(ctx)
	default:
		return fmt.Errorf("unknown release step %q", action)
	}
}

// Plan reads the manifest and computes the release version for tag without
// any side effect. Run calls it after the checkout.
func (o *Orchestrator) Plan(branch, tag string) (*model.Plan, error) {
	pkg, err := o.manifest.Load()
	if err != nil {
		return nil, err
	}

	next, err := version.IncrementFunc(o.inc.Increment).Next(pkg.Version, tag, o.opts.Bump)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("cannot compute the next %q version from %q", tag, pkg.Version), err)
	}

	name := pkg.Name
	if o.opts.Package != "" {
		name = o.opts.Package
	}

	return &model.Plan{
		Package: name,
		Branch:  branch,
		Tag:     tag,
		Current: pkg.Version,
		Version: next,
		Actions: model.PendingActions(),
	}, nil
}
