package docker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/docfill/internal/model"
)

// defaultPingTimeout is the maximum duration to wait for a Docker daemon
// response during a Ping operation. Docker Desktop on macOS can take a few
// seconds to answer after waking up.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client and exposes the operations the
// deployment flow needs.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	inner *client.Client

	// dockerBin is the docker CLI used for builds. Overridable in tests.
	dockerBin string
}

// NewClient creates a new Docker client configured the way the docker CLI
// would be from the environment.
//
// DOCKER_HOST, DOCKER_API_VERSION, DOCKER_CERT_PATH and DOCKER_TLS_VERIFY
// are honoured through client.FromEnv, which also supplies the platform
// default (/var/run/docker.sock, or npipe:////./pipe/docker_engine on
// Windows). When DOCKER_HOST is unset and the default socket does not
// exist, the per-user sockets of Docker Desktop and colima are tried.
//
// No connection is made here; reachability is decided by Ping.
func NewClient() (*Client, error) {
	opts := []client.Opt{client.FromEnv}
	if os.Getenv(client.EnvOverrideHost) == "" {
		home, _ := os.UserHomeDir()
		if host := fallbackHost(runtime.GOOS, home, socketExists); host != "" {
			opts = append(opts, client.WithHost(host))
		}
	}
	return newClient(opts...)
}

// newClient creates a Docker client from opts with API version negotiation.
func newClient(opts ...client.Opt) (*Client, error) {
	opts = append(opts, client.WithAPIVersionNegotiation())
	c, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, model.WrapCLIError(
			model.KindDockerUnavailable,
			"failed to create Docker client",
			err,
		)
	}

	return &Client{inner: c, dockerBin: "docker"}, nil
}

// fallbackHost returns a Unix socket URI to use instead of the SDK default
// when the default socket is missing, or "" to keep the default. Only Unix
// platforms have per-user sockets; Windows always keeps the named pipe.
func fallbackHost(goos, home string, exists func(string) bool) string {
	if goos == "windows" || exists(defaultSocket) {
		return ""
	}

	var candidates []string
	if home != "" {
		switch goos {
		case "darwin":
			candidates = []string{
				filepath.Join(home, ".docker", "run", "docker.sock"),
				filepath.Join(home, ".colima", "default", "docker.sock"),
				filepath.Join(home, ".colima", "docker.sock"),
			}
		case "linux":
			candidates = []string{
				filepath.Join(home, ".docker", "desktop", "docker.sock"),
			}
		}
	}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" && goos == "linux" {
		// Rootless dockerd.
		candidates = append(candidates, filepath.Join(xdg, "docker.sock"))
	}

	for _, path := range candidates {
		if exists(path) {
			return "unix://" + path
		}
	}
	return ""
}

// defaultSocket is the SDK's default daemon socket on Unix platforms.
const defaultSocket = "/var/run/docker.sock"

func socketExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Host returns the daemon address the client talks to, e.g.
// "unix:///var/run/docker.sock".
func (c *Client) Host() string {
	return c.inner.DaemonHost()
}

// Ping verifies that the Docker daemon is reachable and responsive,
// waiting up to defaultPingTimeout.
//
// Returns a model.CLIError of kind docker-unavailable if the daemon does
// not respond or returns an error.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	_, err := c.inner.Ping(pingCtx)
	if err != nil {
		return model.WrapCLIError(
			model.KindDockerUnavailable,
			"Docker daemon is not responding; is Docker running?",
			err,
		)
	}
	return nil
}

// Close releases all resources held by the Docker client.
// Close is safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
