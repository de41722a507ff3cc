package model

import (
	"fmt"
	"regexp"
	"time"
)

// DeploymentStatus represents the lifecycle state of the Document Filler
// deployment on the local Docker host.
//
//	[absent] → running ⇄ stopped → [absent]
type DeploymentStatus string

const (
	// StatusRunning indicates at least one managed container is running.
	StatusRunning DeploymentStatus = "running"

	// StatusStopped indicates managed containers exist but none is running.
	StatusStopped DeploymentStatus = "stopped"

	// StatusAbsent indicates no managed container exists at all.
	StatusAbsent DeploymentStatus = "absent"
)

// String returns the string representation of DeploymentStatus.
func (s DeploymentStatus) String() string {
	return string(s)
}

// Deployment is the aggregate view of the service as seen through the
// Docker API: the containers docfill manages plus the port they publish.
type Deployment struct {
	// Name is the container name the deployment runs under.
	Name string `json:"name"`

	// Image is the image reference the container was started from.
	Image string `json:"image"`

	// Port is the host port the service is published on.
	Port int `json:"port"`

	// Status is the aggregate lifecycle state.
	Status DeploymentStatus `json:"status"`

	// Containers holds every managed container found on the host.
	Containers []ContainerInfo `json:"containers,omitempty"`

	// CreatedAt is taken from the docfill.created-at label of the newest
	// container. Zero when the deployment is absent.
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// nameRegex follows the Docker container name grammar:
// [a-zA-Z0-9][a-zA-Z0-9_.-]*
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateName checks if the given name is a valid Docker container name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("container name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid container name %q: must start with an alphanumeric character and contain only [a-zA-Z0-9_.-]", name)
	}
	return nil
}

// PortBinding is a single published port of a container.
type PortBinding struct {
	// HostIP is the host interface the port is bound on ("0.0.0.0", "::").
	HostIP string `json:"hostIp,omitempty"`

	// HostPort is the port number on the host. Zero for exposed-only ports.
	HostPort int `json:"hostPort"`

	// ContainerPort is the port number inside the container.
	ContainerPort int `json:"containerPort"`

	// Protocol is "tcp" or "udp".
	Protocol string `json:"protocol"`
}

// String formats the binding the way `docker ps` does.
func (p PortBinding) String() string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	if p.HostPort == 0 {
		return fmt.Sprintf("%d/%s", p.ContainerPort, proto)
	}
	ip := p.HostIP
	if ip == "" {
		ip = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d->%d/%s", ip, p.HostPort, p.ContainerPort, proto)
}

// ValidatePort checks that a port number is within 1-65535.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", port)
	}
	return nil
}

// ContainerInfo holds runtime information about a Docker container.
// This data is fetched dynamically from the Docker API, not persisted.
type ContainerInfo struct {
	// ID is the unique Docker container identifier.
	ID string `json:"id"`

	// Name is the human-readable Docker container name without the
	// leading slash the API reports.
	Name string `json:"name"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// State is the short Docker state ("running", "exited", "created").
	State string `json:"state"`

	// Status is the long human-readable status ("Up 3 minutes").
	Status string `json:"status,omitempty"`

	// Ports lists the container's port bindings.
	Ports []PortBinding `json:"ports,omitempty"`

	// Labels is the full set of Docker labels on the container.
	Labels map[string]string `json:"labels,omitempty"`
}

// ShortID returns the 12-character abbreviated container ID.
func (c ContainerInfo) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}

// IsRunning reports whether the container's state is "running".
func (c ContainerInfo) IsRunning() bool {
	return c.State == "running"
}

// ExitCode defines the CLI exit codes. Every deployment failure
// (daemon unreachable, build failed, run failed) exits with
// ExitGeneralError so scripts can keep checking for a plain non-zero status.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates the command failed.
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates invalid flags, arguments or configuration.
	ExitUsage ExitCode = 2
)

// ErrorKind classifies a CLIError for JSON error output.
type ErrorKind string

const (
	KindGeneral            ErrorKind = "general"
	KindDockerUnavailable  ErrorKind = "docker-unavailable"
	KindBuildFailed        ErrorKind = "build-failed"
	KindEnvTemplateMissing ErrorKind = "env-template-missing"
	KindRunFailed          ErrorKind = "run-failed"
	KindConfigInvalid      ErrorKind = "config-invalid"
	KindNotFound           ErrorKind = "not-found"
	KindComposeFailed      ErrorKind = "compose-failed"
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given kind and message.
// The exit code is derived from the kind.
func NewCLIError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Code: kind.ExitCode(), Kind: kind, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Code: kind.ExitCode(), Kind: kind, Message: message, Err: err}
}

// ExitCode returns the process exit code associated with the kind.
func (k ErrorKind) ExitCode() ExitCode {
	if k == KindConfigInvalid {
		return ExitUsage
	}
	return ExitGeneralError
}
