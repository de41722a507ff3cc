package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/docfill/internal/model"
)

// EnvConfigPath names the environment variable that points at an
// alternative configuration file.
const EnvConfigPath = "DOCFILL_CONFIG"

// DefaultFileName is the configuration file looked up in the working directory.
const DefaultFileName = "docfill.yaml"

// Health configures the readiness probe run after the container starts.
type Health struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// Compose configures the docker compose workflow.
type Compose struct {
	File     string   `yaml:"file"`
	Profiles []string `yaml:"profiles"`

	// SourceMount is where the dev service bind-mounts the build context
	// inside the container. It must match the image's WORKDIR.
	SourceMount string `yaml:"source_mount"`

	// DevCommand replaces the dev service's command. Empty runs uvicorn
	// on main:app with --reload on the container port.
	DevCommand []string `yaml:"dev_command"`
}

// Config is the project configuration.
type Config struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Port          int               `yaml:"port"`
	ContainerPort int               `yaml:"container_port"`
	Dockerfile    string            `yaml:"dockerfile"`
	BuildContext  string            `yaml:"build_context"`
	BuildArgs     map[string]string `yaml:"build_args"`
	EnvFile       string            `yaml:"env_file"`
	EnvTemplate   string            `yaml:"env_template"`
	RestartPolicy string            `yaml:"restart_policy"`
	Health        Health            `yaml:"health"`
	Compose       Compose           `yaml:"compose"`

	// path is the file the configuration was read from, empty for defaults.
	path string
}

// Path returns the file the configuration was loaded from. Empty when no
// file existed and defaults are in effect.
func (c *Config) Path() string {
	return c.path
}

// Overrides carries command-line values that take precedence over the file.
// Zero values leave the loaded configuration untouched.
type Overrides struct {
	Image         string
	ContainerName string
	Port          int
}

// ResolvePath picks the configuration file: the explicit flag value, then
// DOCFILL_CONFIG, then docfill.yaml in dir.
func ResolvePath(flagValue, dir string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env
	}
	return filepath.Join(dir, DefaultFileName)
}

// Load reads the configuration at path. A missing file yields the defaults
// with relative paths resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	baseDir := filepath.Dir(path)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.resolvePaths(baseDir)
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.path = path
	cfg.normalize()
	cfg.resolvePaths(baseDir)
	return cfg, nil
}

// Apply merges command-line overrides into the configuration.
func (c *Config) Apply(o Overrides) {
	if o.Image != "" {
		c.Image = o.Image
	}
	if o.ContainerName != "" {
		c.ContainerName = o.ContainerName
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
}

// normalize refills fields an explicit empty value in the file cleared.
func (c *Config) normalize() {
	def := Default()
	c.Image = strings.TrimSpace(c.Image)
	c.ContainerName = strings.TrimSpace(c.ContainerName)
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.ContainerName == "" {
		c.ContainerName = def.ContainerName
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = def.ContainerPort
	}
	if c.Dockerfile == "" {
		c.Dockerfile = def.Dockerfile
	}
	if c.BuildContext == "" {
		c.BuildContext = def.BuildContext
	}
	if c.EnvFile == "" {
		c.EnvFile = def.EnvFile
	}
	if c.EnvTemplate == "" {
		c.EnvTemplate = def.EnvTemplate
	}
	if c.RestartPolicy == "" {
		c.RestartPolicy = def.RestartPolicy
	}
	if c.Health.Path == "" {
		c.Health.Path = def.Health.Path
	}
	if !strings.HasPrefix(c.Health.Path, "/") {
		c.Health.Path = "/" + c.Health.Path
	}
	if c.Health.Timeout == 0 {
		c.Health.Timeout = def.Health.Timeout
	}
	if c.Compose.File == "" {
		c.Compose.File = def.Compose.File
	}
	if c.Compose.SourceMount == "" {
		c.Compose.SourceMount = def.Compose.SourceMount
	}
}

func (c *Config) resolvePaths(baseDir string) {
	c.Dockerfile = resolve(baseDir, c.Dockerfile)
	c.BuildContext = resolve(baseDir, c.BuildContext)
	c.EnvFile = resolve(baseDir, c.EnvFile)
	c.EnvTemplate = resolve(baseDir, c.EnvTemplate)
	c.Compose.File = resolve(baseDir, c.Compose.File)
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(baseDir, p))
}

// Validate ensures the configuration is usable. The returned error is a
// model.CLIError of kind config-invalid.
func (c *Config) Validate() error {
	if c.Image == "" {
		return model.NewCLIError(model.KindConfigInvalid, "image must be set")
	}
	if err := model.ValidateName(c.ContainerName); err != nil {
		return model.WrapCLIError(model.KindConfigInvalid, "invalid container_name", err)
	}
	if err := model.ValidatePort(c.Port); err != nil {
		return model.WrapCLIError(model.KindConfigInvalid, "invalid port", err)
	}
	if err := model.ValidatePort(c.ContainerPort); err != nil {
		return model.WrapCLIError(model.KindConfigInvalid, "invalid container_port", err)
	}
	if !validRestartPolicy(c.RestartPolicy) {
		return model.NewCLIError(model.KindConfigInvalid,
			fmt.Sprintf("invalid restart_policy %q (valid: no, always, on-failure, unless-stopped)", c.RestartPolicy))
	}
	if !strings.HasPrefix(c.Compose.SourceMount, "/") {
		return model.NewCLIError(model.KindConfigInvalid,
			fmt.Sprintf("compose.source_mount must be an absolute container path, got %q", c.Compose.SourceMount))
	}
	if c.Health.Timeout < 0 {
		return model.NewCLIError(model.KindConfigInvalid, "health.timeout must not be negative")
	}
	return nil
}

func validRestartPolicy(p string) bool {
	switch p {
	case "no", "always", "on-failure", "unless-stopped":
		return true
	default:
		return false
	}
}
