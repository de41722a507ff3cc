// Package deploy runs the Document Filler launch sequence.
//
// Orchestration steps of Up:
//  1. Verify the Docker daemon answers; otherwise fail before any build
//  2. Build the image (skippable)
//  3. Create .env from .env.example when it is missing, and stop there so
//     the operator can fill in GEMINI_API_KEY
//  4. Stop every container publishing the service port; failures are
//     logged and ignored
//  5. Remove a leftover container holding the configured name
//  6. Create and start the new container
//  7. Optionally wait for the service to answer HTTP
package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/docker"
	"github.com/shinji-kodama/docfill/internal/envfile"
	"github.com/shinji-kodama/docfill/internal/health"
)

// portReleaseTimeout bounds the wait for the stopped containers' port.
const portReleaseTimeout = 3 * time.Second

// Engine is the subset of the Docker client the launch sequence needs.
type Engine interface {
	Ping(ctx context.Context) error
	BuildImage(ctx context.Context, spec docker.BuildSpec) error
	StopPublishing(ctx context.Context, hostPort int) ([]string, error)
	RemoveByName(ctx context.Context, name string) (bool, error)
	RunContainer(ctx context.Context, spec docker.RunSpec) (string, error)
}

// PortChecker reports on host port availability.
type PortChecker interface {
	WaitUntilFree(ctx context.Context, port int, timeout time.Duration) bool
	SuggestPort(busy int) (int, error)
}

// ReadinessProber waits for the launched service to answer.
type ReadinessProber interface {
	WaitReady(ctx context.Context, url string, timeout time.Duration) (*health.Result, error)
}

// UpOptions tunes a single Up run.
type UpOptions struct {
	// NoBuild skips the image build and runs the existing image.
	NoBuild bool

	// Wait probes the service after start until it answers.
	Wait bool
}

// Result summarizes what Up did.
type Result struct {
	// EnvCreated is set when .env was created from the template; nothing
	// was started in that case.
	EnvCreated bool `json:"envCreated"`

	EnvFile     string   `json:"envFile"`
	ImageBuilt  bool     `json:"imageBuilt"`
	Image       string   `json:"image"`
	Stopped     []string `json:"stopped,omitempty"`
	Replaced    bool     `json:"replaced"`
	ContainerID string   `json:"containerId,omitempty"`
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`

	// MissingVars lists required env vars that are empty in .env.
	MissingVars []string `json:"missingVars,omitempty"`

	// Health is set when Wait was requested and the service answered.
	Health *health.Result `json:"health,omitempty"`
}

// Runner executes the launch sequence against an Engine.
type Runner struct {
	Engine Engine
	Config *config.Config
	Logger *slog.Logger

	// Out receives the build output.
	Out io.Writer

	// Ports and Prober are optional.
	Ports  PortChecker
	Prober ReadinessProber

	now func() time.Time
}

// NewRunner returns a Runner with the given collaborators.
func NewRunner(engine Engine, cfg *config.Config, logger *slog.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		Engine: engine,
		Config: cfg,
		Logger: logger,
		Out:    out,
		now:    time.Now,
	}
}

// URL is the address the service is reachable at on this host.
func URL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// Up performs the launch sequence. Every error it returns is a
// model.CLIError carrying the exit code for the failure.
func (r *Runner) Up(ctx context.Context, opts UpOptions) (*Result, error) {
	cfg := r.Config
	res := &Result{
		EnvFile: cfg.EnvFile,
		Image:   cfg.Image,
		Name:    cfg.ContainerName,
	}

	r.Logger.Debug("checking docker daemon")
	if err := r.Engine.Ping(ctx); err != nil {
		return nil, err
	}

	if err := r.Build(ctx, opts.NoBuild); err != nil {
		return nil, err
	}
	res.ImageBuilt = !opts.NoBuild

	created, err := envfile.Bootstrap(cfg.EnvFile, cfg.EnvTemplate)
	if err != nil {
		return nil, err
	}
	if created {
		r.Logger.Info("created env file from template", "env_file", cfg.EnvFile, "template", cfg.EnvTemplate)
		res.EnvCreated = true
		return res, nil
	}

	vars, err := envfile.Load(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	res.MissingVars = envfile.CheckRequired(vars, envfile.APIKeyVar)
	if len(res.MissingVars) > 0 {
		r.Logger.Warn("required variables are empty; the service will start but cannot call the model",
			"env_file", cfg.EnvFile, "missing", res.MissingVars)
	}

	res.Stopped = r.stopPublishers(ctx)

	replaced, err := r.Engine.RemoveByName(ctx, cfg.ContainerName)
	if err != nil {
		r.Logger.Warn("could not remove existing container", "name", cfg.ContainerName, "error", err)
	}
	res.Replaced = replaced

	r.checkPort(ctx, len(res.Stopped) > 0)

	id, err := r.Engine.RunContainer(ctx, docker.RunSpec{
		Name:          cfg.ContainerName,
		Image:         cfg.Image,
		HostPort:      cfg.Port,
		ContainerPort: cfg.ContainerPort,
		Env:           envfile.ToList(vars),
		RestartPolicy: cfg.RestartPolicy,
		Labels: docker.BuildLabels(docker.LaunchInfo{
			Name:      cfg.ContainerName,
			Image:     cfg.Image,
			Port:      cfg.Port,
			CreatedAt: r.clock(),
		}),
	})
	if err != nil {
		return nil, err
	}
	res.ContainerID = id
	res.URL = URL(cfg.Port)
	r.Logger.Info("container started", "name", cfg.ContainerName, "id", shortID(id), "url", res.URL)

	if opts.Wait && r.Prober != nil {
		hr, err := r.Prober.WaitReady(ctx, res.URL+cfg.Health.Path, cfg.Health.Timeout)
		if err != nil {
			// The container runs; readiness is reported, not fatal.
			r.Logger.Warn("service did not become ready", "error", err)
		} else {
			res.Health = hr
		}
	}

	return res, nil
}

// Build runs the image build unless skip is set.
func (r *Runner) Build(ctx context.Context, skip bool) error {
	if skip {
		r.Logger.Debug("skipping image build", "image", r.Config.Image)
		return nil
	}
	r.Logger.Debug("building image", "image", r.Config.Image, "context", r.Config.BuildContext)
	return r.Engine.BuildImage(ctx, docker.BuildSpec{
		Image:      r.Config.Image,
		Dockerfile: r.Config.Dockerfile,
		Context:    r.Config.BuildContext,
		BuildArgs:  r.Config.BuildArgs,
		Stdout:     r.Out,
		Stderr:     r.Out,
	})
}

// stopPublishers stops whatever publishes the service port. "Nothing to
// stop" and stop failures alike never abort the launch.
func (r *Runner) stopPublishers(ctx context.Context) []string {
	stopped, err := r.Engine.StopPublishing(ctx, r.Config.Port)
	if err != nil {
		r.Logger.Warn("could not stop containers on service port", "port", r.Config.Port, "error", err)
	}
	for _, name := range stopped {
		r.Logger.Info("stopped container on service port", "port", r.Config.Port, "container", name)
	}
	return stopped
}

// checkPort warns when something outside Docker still holds the port.
func (r *Runner) checkPort(ctx context.Context, justStopped bool) {
	if r.Ports == nil {
		return
	}
	timeout := time.Duration(0)
	if justStopped {
		timeout = portReleaseTimeout
	}
	if r.Ports.WaitUntilFree(ctx, r.Config.Port, timeout) {
		return
	}
	attrs := []any{"port", r.Config.Port}
	if alt, err := r.Ports.SuggestPort(r.Config.Port); err == nil {
		attrs = append(attrs, "try", fmt.Sprintf("--port %d", alt))
	}
	r.Logger.Warn("service port is held by a process outside Docker", attrs...)
}

func (r *Runner) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
