package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/docfill/internal/model"
)

// Runner invokes `docker compose` for one compose file.
type Runner struct {
	// File is the compose file path. Its directory is the project directory.
	File string

	// Profiles are passed as --profile flags.
	Profiles []string

	// Stdout and Stderr receive compose output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Bin is the docker CLI, "docker" unless overridden.
	Bin string

	// Env is the environment of the docker CLI. Nil inherits the process
	// environment.
	Env []string
}

// Up runs `docker compose up -d`, with --build when build is set.
func (r *Runner) Up(ctx context.Context, build bool) error {
	args := r.baseArgs()
	args = append(args, "up", "-d")
	if build {
		args = append(args, "--build")
	}
	return r.run(ctx, args)
}

// Down runs `docker compose down`, with -v when removeVolumes is set.
func (r *Runner) Down(ctx context.Context, removeVolumes bool) error {
	args := r.baseArgs()
	args = append(args, "down")
	if removeVolumes {
		args = append(args, "-v")
	}
	return r.run(ctx, args)
}

// baseArgs constructs "compose -f <file> [--profile p]...".
func (r *Runner) baseArgs() []string {
	args := make([]string, 0, 3+2*len(r.Profiles))
	args = append(args, "compose", "-f", r.File)
	for _, p := range r.Profiles {
		args = append(args, "--profile", p)
	}
	return args
}

// run executes the docker CLI in the compose file's directory. Stderr is
// also captured so a failure can quote compose's own message.
func (r *Runner) run(ctx context.Context, args []string) error {
	bin := r.Bin
	if bin == "" {
		bin = "docker"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = filepath.Dir(r.File)
	cmd.Env = r.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	var captured bytes.Buffer
	cmd.Stdout = r.Stdout
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &captured)
	} else {
		cmd.Stderr = &captured
	}

	if err := cmd.Run(); err != nil {
		msg := "docker compose " + strings.Join(args[3+2*len(r.Profiles):], " ") + " failed"
		if out := strings.TrimSpace(captured.String()); out != "" {
			msg = fmt.Sprintf("%s: %s", msg, lastLine(out))
		}
		return model.WrapCLIError(model.KindComposeFailed, msg, err)
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
