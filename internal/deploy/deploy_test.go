package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/docker"
	"github.com/shinji-kodama/docfill/internal/health"
	"github.com/shinji-kodama/docfill/internal/model"
)

// fakeEngine records calls in order and returns canned errors.
type fakeEngine struct {
	calls []string

	pingErr  error
	buildErr error
	stopErr  error
	runErr   error

	stopped  []string
	replaced bool

	builds []docker.BuildSpec
	runs   []docker.RunSpec
}

func (f *fakeEngine) Ping(ctx context.Context) error {
	f.calls = append(f.calls, "ping")
	return f.pingErr
}

func (f *fakeEngine) BuildImage(ctx context.Context, spec docker.BuildSpec) error {
	f.calls = append(f.calls, "build")
	f.builds = append(f.builds, spec)
	return f.buildErr
}

func (f *fakeEngine) StopPublishing(ctx context.Context, hostPort int) ([]string, error) {
	f.calls = append(f.calls, "stop")
	return f.stopped, f.stopErr
}

func (f *fakeEngine) RemoveByName(ctx context.Context, name string) (bool, error) {
	f.calls = append(f.calls, "remove")
	return f.replaced, nil
}

func (f *fakeEngine) RunContainer(ctx context.Context, spec docker.RunSpec) (string, error) {
	f.calls = append(f.calls, "run")
	f.runs = append(f.runs, spec)
	if f.runErr != nil {
		return "", f.runErr
	}
	return "0123456789abcdef", nil
}

type fakePorts struct {
	free      bool
	waited    []time.Duration
	suggested int
}

func (p *fakePorts) WaitUntilFree(ctx context.Context, port int, timeout time.Duration) bool {
	p.waited = append(p.waited, timeout)
	return p.free
}

func (p *fakePorts) SuggestPort(busy int) (int, error) {
	return p.suggested, nil
}

type fakeProber struct {
	url string
	err error
}

func (p *fakeProber) WaitReady(ctx context.Context, url string, timeout time.Duration) (*health.Result, error) {
	p.url = url
	if p.err != nil {
		return nil, p.err
	}
	return &health.Result{URL: url, StatusCode: 200, Attempts: 1}, nil
}

// project creates a temp project directory. withEnv writes .env,
// withTemplate writes .env.example.
func project(t *testing.T, withEnv, withTemplate bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if withTemplate {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.example"), []byte("GEMINI_API_KEY=\n"), 0o644))
	}
	if withEnv {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=secret\nLOG_LEVEL=info\n"), 0o600))
	}
	cfg, err := config.Load(filepath.Join(dir, config.DefaultFileName))
	require.NoError(t, err)
	return cfg
}

func newTestRunner(engine Engine, cfg *config.Config) *Runner {
	r := NewRunner(engine, cfg, nil, nil)
	r.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }
	return r
}

func requireKind(t *testing.T, err error, kind model.ErrorKind) {
	t.Helper()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected CLIError, got %v", err)
	assert.Equal(t, kind, cliErr.Kind)
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

// TestUp_DaemonUnreachable: the launch fails before any build is attempted.
func TestUp_DaemonUnreachable(t *testing.T) {
	engine := &fakeEngine{
		pingErr: model.WrapCLIError(model.KindDockerUnavailable, "Docker daemon is not responding", errors.New("dial unix")),
	}

	res, err := newTestRunner(engine, project(t, true, true)).Up(context.Background(), UpOptions{})

	require.Error(t, err)
	assert.Nil(t, res)
	requireKind(t, err, model.KindDockerUnavailable)
	assert.Equal(t, []string{"ping"}, engine.calls)
}

// TestUp_BuildFails: no container is started after a failed build.
func TestUp_BuildFails(t *testing.T) {
	engine := &fakeEngine{
		buildErr: model.NewCLIError(model.KindBuildFailed, "failed to build image"),
	}

	_, err := newTestRunner(engine, project(t, true, true)).Up(context.Background(), UpOptions{})

	require.Error(t, err)
	requireKind(t, err, model.KindBuildFailed)
	assert.Equal(t, []string{"ping", "build"}, engine.calls)
	assert.Empty(t, engine.runs)
}

// TestUp_CreatesEnvAndStops: a missing .env is created from the template
// and the launch ends successfully without starting anything.
func TestUp_CreatesEnvAndStops(t *testing.T) {
	cfg := project(t, false, true)
	engine := &fakeEngine{}

	res, err := newTestRunner(engine, cfg).Up(context.Background(), UpOptions{})

	require.NoError(t, err)
	assert.True(t, res.EnvCreated)
	assert.Empty(t, res.ContainerID)
	assert.Empty(t, res.URL)
	assert.Equal(t, []string{"ping", "build"}, engine.calls)

	data, readErr := os.ReadFile(cfg.EnvFile)
	require.NoError(t, readErr)
	assert.Equal(t, "GEMINI_API_KEY=\n", string(data))
}

func TestUp_NoEnvNoTemplate(t *testing.T) {
	engine := &fakeEngine{}

	_, err := newTestRunner(engine, project(t, false, false)).Up(context.Background(), UpOptions{})

	require.Error(t, err)
	requireKind(t, err, model.KindEnvTemplateMissing)
	assert.Empty(t, engine.runs)
}

// TestUp_Success: with .env present the publishers of the port are
// stopped, then the container is started and its URL reported.
func TestUp_Success(t *testing.T) {
	cfg := project(t, true, false)
	engine := &fakeEngine{stopped: []string{"old-filler"}, replaced: true}

	res, err := newTestRunner(engine, cfg).Up(context.Background(), UpOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"ping", "build", "stop", "remove", "run"}, engine.calls)
	assert.False(t, res.EnvCreated)
	assert.True(t, res.ImageBuilt)
	assert.True(t, res.Replaced)
	assert.Equal(t, []string{"old-filler"}, res.Stopped)
	assert.Equal(t, "0123456789abcdef", res.ContainerID)
	assert.Equal(t, "http://localhost:8000", res.URL)
	assert.Empty(t, res.MissingVars)

	require.Len(t, engine.runs, 1)
	run := engine.runs[0]
	assert.Equal(t, "document-filler", run.Name)
	assert.Equal(t, "document-filler", run.Image)
	assert.Equal(t, 8000, run.HostPort)
	assert.Equal(t, 8000, run.ContainerPort)
	assert.Equal(t, []string{"GEMINI_API_KEY=secret", "LOG_LEVEL=info"}, run.Env)
	assert.Equal(t, "unless-stopped", run.RestartPolicy)
	assert.Equal(t, "2026-10-15T08:00:00Z", run.Labels[docker.LabelCreatedAt])

	require.Len(t, engine.builds, 1)
	assert.Equal(t, cfg.Dockerfile, engine.builds[0].Dockerfile)
	assert.Equal(t, cfg.BuildContext, engine.builds[0].Context)
}

// TestUp_StopFailureIgnored: failing to stop the old publishers never
// prevents the new container from starting.
func TestUp_StopFailureIgnored(t *testing.T) {
	engine := &fakeEngine{stopErr: errors.New("no such container")}

	res, err := newTestRunner(engine, project(t, true, false)).Up(context.Background(), UpOptions{})

	require.NoError(t, err)
	assert.Contains(t, engine.calls, "run")
	assert.Equal(t, "http://localhost:8000", res.URL)
}

func TestUp_RunFails(t *testing.T) {
	engine := &fakeEngine{
		runErr: model.NewCLIError(model.KindRunFailed, "failed to start container"),
	}

	res, err := newTestRunner(engine, project(t, true, false)).Up(context.Background(), UpOptions{})

	require.Error(t, err)
	assert.Nil(t, res)
	requireKind(t, err, model.KindRunFailed)
}

func TestUp_NoBuild(t *testing.T) {
	engine := &fakeEngine{}

	res, err := newTestRunner(engine, project(t, true, false)).Up(context.Background(), UpOptions{NoBuild: true})

	require.NoError(t, err)
	assert.NotContains(t, engine.calls, "build")
	assert.False(t, res.ImageBuilt)
}

// TestUp_MissingAPIKeyWarnsOnly: the key is passed through, not validated.
func TestUp_MissingAPIKeyWarnsOnly(t *testing.T) {
	cfg := project(t, false, false)
	require.NoError(t, os.WriteFile(cfg.EnvFile, []byte("GEMINI_API_KEY=\n"), 0o600))
	engine := &fakeEngine{}

	res, err := newTestRunner(engine, cfg).Up(context.Background(), UpOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"GEMINI_API_KEY"}, res.MissingVars)
	assert.NotEmpty(t, res.ContainerID)
}

func TestUp_CustomPort(t *testing.T) {
	cfg := project(t, true, false)
	cfg.Apply(config.Overrides{Port: 9000})
	engine := &fakeEngine{}

	res, err := newTestRunner(engine, cfg).Up(context.Background(), UpOptions{})

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", res.URL)
	assert.Equal(t, 9000, engine.runs[0].HostPort)
	assert.Equal(t, 8000, engine.runs[0].ContainerPort)
}

func TestUp_PortCheck(t *testing.T) {
	t.Run("waits for release after stopping", func(t *testing.T) {
		ports := &fakePorts{free: true}
		r := newTestRunner(&fakeEngine{stopped: []string{"x"}}, project(t, true, false))
		r.Ports = ports

		_, err := r.Up(context.Background(), UpOptions{})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{portReleaseTimeout}, ports.waited)
	})

	t.Run("busy port still attempts the run", func(t *testing.T) {
		ports := &fakePorts{free: false, suggested: 8001}
		engine := &fakeEngine{}
		r := newTestRunner(engine, project(t, true, false))
		r.Ports = ports

		_, err := r.Up(context.Background(), UpOptions{})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{0}, ports.waited)
		assert.Contains(t, engine.calls, "run")
	})
}

func TestUp_Wait(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		prober := &fakeProber{}
		r := newTestRunner(&fakeEngine{}, project(t, true, false))
		r.Prober = prober

		res, err := r.Up(context.Background(), UpOptions{Wait: true})
		require.NoError(t, err)
		require.NotNil(t, res.Health)
		assert.Equal(t, "http://localhost:8000/", prober.url)
	})

	t.Run("not ready is not fatal", func(t *testing.T) {
		r := newTestRunner(&fakeEngine{}, project(t, true, false))
		r.Prober = &fakeProber{err: errors.New("timeout")}

		res, err := r.Up(context.Background(), UpOptions{Wait: true})
		require.NoError(t, err)
		assert.Nil(t, res.Health)
		assert.NotEmpty(t, res.ContainerID)
	})
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", URL(8000))
}
