package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/docker"
)

// Profile names used in the generated file.
const (
	ProfileProd = "prod"
	ProfileDev  = "dev"
)

// ServiceApp and ServiceDev are the generated service names.
const (
	ServiceApp = "app"
	ServiceDev = "dev"
)

// composeFile is the subset of the compose specification docfill writes.
type composeFile struct {
	Services map[string]service `yaml:"services"`
}

type service struct {
	Build         buildSection      `yaml:"build"`
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name,omitempty"`
	Profiles      []string          `yaml:"profiles"`
	Ports         []string          `yaml:"ports"`
	EnvFile       []string          `yaml:"env_file"`
	Restart       string            `yaml:"restart,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Command       []string          `yaml:"command,omitempty"`
	Labels        map[string]string `yaml:"labels"`
}

type buildSection struct {
	Context    string            `yaml:"context"`
	Dockerfile string            `yaml:"dockerfile"`
	Args       map[string]string `yaml:"args,omitempty"`
}

// GenerateFile renders the compose file for cfg. Paths inside the file are
// made relative to the directory of cfg.Compose.File, which is how compose
// resolves them. now stamps the created-at label.
func GenerateFile(cfg *config.Config, now time.Time) ([]byte, error) {
	baseDir := filepath.Dir(cfg.Compose.File)

	contextDir, err := relPath(baseDir, cfg.BuildContext)
	if err != nil {
		return nil, err
	}
	dockerfile, err := relPath(cfg.BuildContext, cfg.Dockerfile)
	if err != nil {
		return nil, err
	}
	envFile, err := relPath(baseDir, cfg.EnvFile)
	if err != nil {
		return nil, err
	}

	build := buildSection{
		Context:    contextDir,
		Dockerfile: dockerfile,
		Args:       cfg.BuildArgs,
	}
	portMapping := fmt.Sprintf("%d:%d", cfg.Port, cfg.ContainerPort)
	labels := docker.BuildLabels(docker.LaunchInfo{
		Name:      cfg.ContainerName,
		Image:     cfg.Image,
		Port:      cfg.Port,
		CreatedAt: now,
	})

	file := composeFile{
		Services: map[string]service{
			ServiceApp: {
				Build:         build,
				Image:         cfg.Image,
				ContainerName: cfg.ContainerName,
				Profiles:      []string{ProfileProd},
				Ports:         []string{portMapping},
				EnvFile:       []string{envFile},
				Restart:       cfg.RestartPolicy,
				Labels:        labels,
			},
			ServiceDev: {
				Build:    build,
				Image:    cfg.Image,
				Profiles: []string{ProfileDev},
				Ports:    []string{portMapping},
				EnvFile:  []string{envFile},
				Volumes:  []string{contextDir + ":" + cfg.Compose.SourceMount},
				Command:  devCommand(cfg),
				Labels: labels,
			},
		},
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose file: %w", err)
	}

	header := fmt.Sprintf(
		"# Generated by docfill for %q\n# Profiles: %s (production), %s (source mounted, auto-reload)\n",
		cfg.ContainerName, ProfileProd, ProfileDev,
	)
	return []byte(header + string(data)), nil
}

// devCommand is the configured dev command, or uvicorn with auto reload
// serving main:app, which is how the Document Filler image starts.
func devCommand(cfg *config.Config) []string {
	if len(cfg.Compose.DevCommand) > 0 {
		return cfg.Compose.DevCommand
	}
	return []string{
		"uvicorn", "main:app",
		"--host", "0.0.0.0",
		"--port", strconv.Itoa(cfg.ContainerPort),
		"--reload",
	}
}

// ErrExists is returned by WriteFile when the target exists and force is false.
var ErrExists = errors.New("compose file already exists")

// WriteFile writes data to path, refusing to replace an existing file
// unless force is set.
func WriteFile(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write compose file %s: %w", path, err)
	}
	return nil
}

// relPath returns target relative to base in slash form, prefixed with
// "./" so compose never mistakes it for a named volume.
func relPath(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", fmt.Errorf("resolve %s relative to %s: %w", target, base, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return ".", nil
	}
	if rel[0] != '.' {
		rel = "./" + rel
	}
	return rel, nil
}
