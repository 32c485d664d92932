package release

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/publish-prerelease/internal/manifest"
	"github.com/shinji-kodama/publish-prerelease/internal/model"
	"github.com/shinji-kodama/publish-prerelease/internal/version"
)

// recorder collects the calls made to every fake collaborator in order.
type recorder struct {
	calls []string
	fail  map[string]error
}

func (r *recorder) record(call string) error {
	r.calls = append(r.calls, call)
	return r.fail[call]
}

type fakeVCS struct{ r *recorder }

func (f fakeVCS) Checkout(_ context.Context, branch string) error {
	return f.r.record("checkout " + branch)
}

func (f fakeVCS) Push(context.Context) error {
	return f.r.record("push")
}

type fakeRegistry struct{ r *recorder }

func (f fakeRegistry) BumpAndCommit(_ context.Context, v string) error {
	return f.r.record("version " + v)
}

func (f fakeRegistry) Publish(_ context.Context, tag string) error {
	return f.r.record("publish " + tag)
}

type fakeManifest struct {
	r   *recorder
	pkg *manifest.Package
	err error
}

func (f fakeManifest) Load() (*manifest.Package, error) {
	f.r.calls = append(f.r.calls, "load")
	return f.pkg, f.err
}

// answer returns a ConfirmFunc that records the plan it was shown.
func answer(r *recorder, ok bool, shown *model.Plan) ConfirmFunc {
	return func(_ context.Context, plan model.Plan) (bool, error) {
		r.calls = append(r.calls, "confirm")
		if shown != nil {
			*shown = plan
		}
		return ok, nil
	}
}

type fixture struct {
	r   *recorder
	out *bytes.Buffer
	pkg *manifest.Package
}

func newFixture(current string) *fixture {
	return &fixture{
		r:   &recorder{fail: map[string]error{}},
		out: &bytes.Buffer{},
		pkg: &manifest.Package{Name: "truffle", Version: current},
	}
}

func (f *fixture) orchestrator(confirm ConfirmFunc, opts Options) *Orchestrator {
	opts.Out = f.out
	return New(fakeVCS{f.r}, fakeRegistry{f.r}, fakeManifest{r: f.r, pkg: f.pkg}, version.Semver{}, confirm, opts)
}

func TestRun_Accept(t *testing.T) {
	f := newFixture("4.1.12")
	var shown model.Plan
	o := f.orchestrator(answer(f.r, true, &shown), Options{StrictArgs: true})

	result, err := o.Run(context.Background(), "develop", "next")
	require.NoError(t, err)

	assert.True(t, result.Published)
	assert.Equal(t, "5.0.0-next.0", result.Plan.Version)
	assert.Equal(t, []string{
		"checkout develop",
		"load",
		"confirm",
		"version 5.0.0-next.0",
		"publish next",
		"push",
	}, f.r.calls)

	assert.Equal(t, model.Plan{
		Package: "truffle",
		Branch:  "develop",
		Tag:     "next",
		Current: "4.1.12",
		Version: "5.0.0-next.0",
		Actions: []model.Action{model.ActionBump, model.ActionPublish, model.ActionPush},
	}, shown)
	assert.Empty(t, f.out.String())
}

func TestRun_ResumesTrack(t *testing.T) {
	f := newFixture("4.2.0-next.0")
	o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true})

	result, err := o.Run(context.Background(), "develop", "next")
	require.NoError(t, err)
	assert.Equal(t, "4.2.0-next.1", result.Plan.Version)
	assert.Contains(t, f.r.calls, "version 4.2.0-next.1")
}

func TestRun_PreminorTrack(t *testing.T) {
	f := newFixture("4.1.12")
	o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true, Bump: version.Preminor})

	result, err := o.Run(context.Background(), "develop", "next")
	require.NoError(t, err)
	assert.Equal(t, "4.2.0-next.0", result.Plan.Version)
}

// TestRun_Decline verifies that declining leaves only the checkout behind.
func TestRun_Decline(t *testing.T) {
	for _, notice := range []bool{true, false} {
		f := newFixture("4.1.12")
		o := f.orchestrator(answer(f.r, false, nil), Options{StrictArgs: true, DeclineNotice: notice})

		result, err := o.Run(context.Background(), "byoc-safe", "byoc")
		require.NoError(t, err)

		assert.False(t, result.Published)
		assert.Equal(t, "5.0.0-byoc.0", result.Plan.Version)
		assert.Equal(t, []string{"checkout byoc-safe", "load", "confirm"}, f.r.calls)
		if notice {
			assert.Equal(t, DeclineNotice+"\n", f.out.String())
		} else {
			assert.Empty(t, f.out.String())
		}
	}
}

func TestRun_StrictMissingArgs(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		tag    string
	}{
		{name: "missing branch", branch: "", tag: "next"},
		{name: "missing tag", branch: "develop", tag: ""},
		{name: "missing both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("4.1.12")
			o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true})

			result, err := o.Run(context.Background(), tt.branch, tt.tag)
			assert.ErrorIs(t, err, ErrMissingArgs)
			assert.Nil(t, result)
			assert.Empty(t, f.r.calls, "no checkout, no prompt")
		})
	}
}

func TestRun_StrictInvalidTag(t *testing.T) {
	f := newFixture("4.1.12")
	o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true})

	_, err := o.Run(context.Background(), "develop", "next.1")

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitUsage, cliErr.Code)
	assert.Empty(t, f.r.calls)
}

// TestRun_LooseProceeds verifies that without strict checking an empty
// branch reaches the checkout, as the loose script did.
func TestRun_LooseProceeds(t *testing.T) {
	f := newFixture("4.2.0-next.0")
	o := f.orchestrator(answer(f.r, false, nil), Options{})

	result, err := o.Run(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout ", "load", "confirm"}, f.r.calls)
	assert.Equal(t, "4.2.0-next.1", result.Plan.Version)
	assert.Empty(t, f.out.String(), "the loose variant prints no decline notice")
}

func TestRun_CheckoutFailure(t *testing.T) {
	f := newFixture("4.1.12")
	checkoutErr := model.NewCLIError(model.ExitGitError, "git checkout develop failed")
	f.r.fail["checkout develop"] = checkoutErr
	o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true})

	_, err := o.Run(context.Background(), "develop", "next")
	assert.Equal(t, checkoutErr, err)
	assert.Equal(t, []string{"checkout develop"}, f.r.calls)
}

func TestRun_ManifestFailure(t *testing.T) {
	f := newFixture("")
	loadErr := model.NewCLIError(model.ExitManifestError, "manifest not found")
	o := New(fakeVCS{f.r}, fakeRegistry{f.r}, fakeManifest{r: f.r, err: loadErr}, version.Semver{},
		answer(f.r, true, nil), Options{StrictArgs: true})

	_, err := o.Run(context.Background(), "develop", "next")
	assert.Equal(t, loadErr, err)
	assert.Equal(t, []string{"checkout develop", "load"}, f.r.calls)
}

func TestRun_MalformedVersion(t *testing.T) {
	f := newFixture("latest")
	o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true})

	_, err := o.Run(context.Background(), "develop", "next")

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitManifestError, cliErr.Code)
	assert.Equal(t, []string{"checkout develop", "load"}, f.r.calls, "no prompt for an uncomputable version")
}

// TestRun_StepFailureStopsWithoutRollback verifies that a failing step
// aborts the remaining steps and leaves the earlier ones in place.
func TestRun_StepFailureStopsWithoutRollback(t *testing.T) {
	tests := []struct {
		name    string
		failing string
		want    []string
	}{
		{
			name:    "bump fails",
			failing: "version 5.0.0-next.0",
			want:    []string{"checkout develop", "load", "confirm", "version 5.0.0-next.0"},
		},
		{
			name:    "publish fails after bump",
			failing: "publish next",
			want:    []string{"checkout develop", "load", "confirm", "version 5.0.0-next.0", "publish next"},
		},
		{
			name:    "push fails after publish",
			failing: "push",
			want:    []string{"checkout develop", "load", "confirm", "version 5.0.0-next.0", "publish next", "push"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("4.1.12")
			stepErr := errors.New("exit status 1")
			f.r.fail[tt.failing] = stepErr
			o := f.orchestrator(answer(f.r, true, nil), Options{StrictArgs: true})

			result, err := o.Run(context.Background(), "develop", "next")
			assert.ErrorIs(t, err, stepErr)
			require.NotNil(t, result)
			assert.False(t, result.Published)
			assert.Equal(t, tt.want, f.r.calls)
		})
	}
}

func TestRun_ConfirmError(t *testing.T) {
	f := newFixture("4.1.12")
	confirm := func(ctx context.Context, _ model.Plan) (bool, error) {
		return false, context.Canceled
	}
	o := f.orchestrator(confirm, Options{StrictArgs: true})

	_, err := o.Run(context.Background(), "develop", "next")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"checkout develop", "load"}, f.r.calls)
}

func TestRun_PackageOverride(t *testing.T) {
	f := newFixture("4.1.12")
	o := f.orchestrator(answer(f.r, false, nil), Options{StrictArgs: true, Package: "@trufflesuite/core"})

	result, err := o.Run(context.Background(), "develop", "next")
	require.NoError(t, err)
	assert.Equal(t, "@trufflesuite/core", result.Plan.Package)
}

// TestPlan verifies that planning alone has no side effects beyond reading
// the manifest.
func TestPlan(t *testing.T) {
	f := newFixture("4.1.12")
	o := f.orchestrator(answer(f.r, true, nil), Options{})

	plan, err := o.Plan("develop", "next")
	require.NoError(t, err)
	assert.Equal(t, "5.0.0-next.0", plan.Version)
	assert.Equal(t, []string{"load"}, f.r.calls)
}
