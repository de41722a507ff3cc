package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/shinji-kodama/docfill/internal/model"
)

// BuildSpec describes an image build.
type BuildSpec struct {
	// Image is the tag to build, e.g. "document-filler".
	Image string

	// Dockerfile is the path to the Dockerfile.
	Dockerfile string

	// Context is the build context directory.
	Context string

	// BuildArgs are passed as --build-arg KEY=VALUE.
	BuildArgs map[string]string

	// Stdout and Stderr receive the build output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// BuildImage builds the service image with the docker CLI.
//
// The CLI is used rather than the SDK's ImageBuild so the operator sees the
// regular BuildKit progress output and .dockerignore handling matches what
// `docker build` does by hand.
//
// Returns a CLIError of kind build-failed if the build exits non-zero.
func (c *Client) BuildImage(ctx context.Context, spec BuildSpec) error {
	cmd := exec.CommandContext(ctx, c.dockerBin, buildArgs(spec)...)
	if c.inner != nil {
		// Build on the daemon Ping checked, not the CLI's current context.
		cmd.Env = c.CLIEnv()
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(
			model.KindBuildFailed,
			fmt.Sprintf("failed to build image %q", spec.Image),
			err,
		)
	}
	return nil
}

// CLIEnv returns the process environment with the docker CLI pinned to
// this client's daemon. DOCKER_CONTEXT is dropped because DOCKER_HOST
// already selects the endpoint.
func (c *Client) CLIEnv() []string {
	return pinHost(os.Environ(), c.Host())
}

func pinHost(env []string, host string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "DOCKER_HOST=") || strings.HasPrefix(kv, "DOCKER_CONTEXT=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "DOCKER_HOST="+host)
}

// buildArgs constructs the argument list for `docker build`. Build args are
// sorted by key so the command line is deterministic.
func buildArgs(spec BuildSpec) []string {
	args := []string{"build", "-t", spec.Image}
	if spec.Dockerfile != "" {
		args = append(args, "-f", spec.Dockerfile)
	}

	keys := make([]string, 0, len(spec.BuildArgs))
	for k := range spec.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", k+"="+spec.BuildArgs[k])
	}

	ctxDir := spec.Context
	if ctxDir == "" {
		ctxDir = "."
	}
	return append(args, ctxDir)
}
