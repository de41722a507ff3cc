// container.go implements the container lifecycle operations of the
// deployment flow: finding whatever publishes the service port, stopping it,
// starting the new container, and reading back managed containers.
package docker

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/shinji-kodama/docfill/internal/model"
)

// RunSpec describes the service container to start.
type RunSpec struct {
	Name          string
	Image         string
	HostPort      int
	ContainerPort int
	Env           []string
	RestartPolicy string
	Labels        map[string]string
}

// LogsOptions selects which part of the container log to read.
type LogsOptions struct {
	Follow     bool
	Tail       string
	Timestamps bool
}

// ListManaged returns every container (running or not) carrying the
// docfill management label.
func (c *Client) ListManaged(ctx context.Context) ([]model.ContainerInfo, error) {
	return c.list(ctx, true, filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	))
}

// ListPublishing returns the running containers that publish hostPort,
// whoever started them.
func (c *Client) ListPublishing(ctx context.Context, hostPort int) ([]model.ContainerInfo, error) {
	return c.list(ctx, false, filters.NewArgs(
		filters.Arg("publish", strconv.Itoa(hostPort)),
	))
}

// FindByName returns the container with exactly the given name, running or
// not. The second return value is false when no such container exists.
func (c *Client) FindByName(ctx context.Context, name string) (model.ContainerInfo, bool, error) {
	// The name filter is a regexp matched against "/name".
	containers, err := c.list(ctx, true, filters.NewArgs(
		filters.Arg("name", "^/"+name+"$"),
	))
	if err != nil {
		return model.ContainerInfo{}, false, err
	}
	for _, ci := range containers {
		if ci.Name == name {
			return ci, true, nil
		}
	}
	return model.ContainerInfo{}, false, nil
}

func (c *Client) list(ctx context.Context, all bool, args filters.Args) ([]model.ContainerInfo, error) {
	containers, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     all,
		Filters: args,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.KindDockerUnavailable,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, ct := range containers {
		result = append(result, containerToInfo(ct))
	}
	return result, nil
}

// containerToInfo converts a Docker API container summary to the domain
// ContainerInfo. Names lose their leading "/" and ports are sorted.
func containerToInfo(ct types.Container) model.ContainerInfo {
	name := ""
	if len(ct.Names) > 0 {
		name = strings.TrimPrefix(ct.Names[0], "/")
	}

	ports := make([]model.PortBinding, 0, len(ct.Ports))
	for _, p := range ct.Ports {
		ports = append(ports, model.PortBinding{
			HostIP:        p.IP,
			HostPort:      int(p.PublicPort),
			ContainerPort: int(p.PrivatePort),
			Protocol:      p.Type,
		})
	}
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].HostPort != ports[j].HostPort {
			return ports[i].HostPort < ports[j].HostPort
		}
		return ports[i].HostIP < ports[j].HostIP
	})

	return model.ContainerInfo{
		ID:     ct.ID,
		Name:   name,
		Image:  ct.Image,
		State:  ct.State,
		Status: ct.Status,
		Ports:  ports,
		Labels: ct.Labels,
	}
}

// StopPublishing stops every running container that publishes hostPort and
// returns the names of those it stopped. Finding none is not an error.
//
// Stop failures for individual containers are collected; the remaining
// containers are still stopped.
func (c *Client) StopPublishing(ctx context.Context, hostPort int) ([]string, error) {
	containers, err := c.ListPublishing(ctx, hostPort)
	if err != nil {
		return nil, err
	}

	var stopped []string
	var failures []string
	for _, ct := range containers {
		if err := c.StopContainer(ctx, ct.ID); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ct.Name, err))
			continue
		}
		stopped = append(stopped, ct.Name)
	}

	if len(failures) > 0 {
		return stopped, fmt.Errorf("failed to stop containers on port %d: %s",
			hostPort, strings.Join(failures, "; "))
	}
	return stopped, nil
}

// StopContainer stops a running container, giving it Docker's default
// grace period before SIGKILL.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	err := c.inner.ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.KindGeneral,
			fmt.Sprintf("failed to stop container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveContainer removes a container. With force it is killed first.
func (c *Client) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	err := c.inner.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.KindGeneral,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveByName force-removes the container called name so a new one can
// take the name. It reports whether a container was removed; a missing
// container is not an error.
func (c *Client) RemoveByName(ctx context.Context, name string) (bool, error) {
	err := c.RemoveContainer(ctx, name, true)
	if err == nil {
		return true, nil
	}
	if cerrdefs.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// RunContainer creates and starts the service container detached, the SDK
// equivalent of:
//
//	docker run -d --name <name> -p <host>:<container> --env-file .env <image>
//
// Returns the new container ID, or a CLIError of kind run-failed.
func (c *Client) RunContainer(ctx context.Context, spec RunSpec) (string, error) {
	containerCfg, hostCfg, err := buildContainerConfig(spec)
	if err != nil {
		return "", model.WrapCLIError(model.KindRunFailed, "invalid container configuration", err)
	}

	resp, err := c.inner.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", model.WrapCLIError(
			model.KindRunFailed,
			fmt.Sprintf("failed to create container %q", spec.Name),
			err,
		)
	}

	if err := c.inner.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Leave no half-created container behind to block the next run.
		_ = c.inner.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})
		return "", model.WrapCLIError(
			model.KindRunFailed,
			fmt.Sprintf("failed to start container %q", spec.Name),
			err,
		)
	}

	return resp.ID, nil
}

// buildContainerConfig translates a RunSpec into Docker API structs.
func buildContainerConfig(spec RunSpec) (*container.Config, *container.HostConfig, error) {
	if err := model.ValidatePort(spec.HostPort); err != nil {
		return nil, nil, fmt.Errorf("host port: %w", err)
	}
	if err := model.ValidatePort(spec.ContainerPort); err != nil {
		return nil, nil, fmt.Errorf("container port: %w", err)
	}

	port, err := nat.NewPort("tcp", strconv.Itoa(spec.ContainerPort))
	if err != nil {
		return nil, nil, err
	}

	containerCfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}

	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(spec.HostPort),
			}},
		},
	}
	if spec.RestartPolicy != "" {
		hostCfg.RestartPolicy = container.RestartPolicy{
			Name: container.RestartPolicyMode(spec.RestartPolicy),
		}
	}

	return containerCfg, hostCfg, nil
}

// Logs copies the container's log stream into stdout and stderr. With
// Follow it blocks until the container exits or ctx is cancelled.
func (c *Client) Logs(ctx context.Context, containerID string, opts LogsOptions, stdout, stderr io.Writer) error {
	rc, err := c.inner.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return model.WrapCLIError(model.KindNotFound,
				fmt.Sprintf("container %q not found", containerID), err)
		}
		return model.WrapCLIError(model.KindGeneral,
			fmt.Sprintf("failed to read logs of %q", containerID), err)
	}
	defer rc.Close()

	// Containers run without a TTY, so the stream is multiplexed.
	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read log stream: %w", err)
	}
	return nil
}

// BuildDeployment aggregates managed containers into a Deployment. The
// newest container's labels supply name, image, port and creation time;
// fallback values are used when there is none.
func BuildDeployment(containers []model.ContainerInfo, fallbackName, fallbackImage string, fallbackPort int) *model.Deployment {
	dep := &model.Deployment{
		Name:       fallbackName,
		Image:      fallbackImage,
		Port:       fallbackPort,
		Status:     determineStatus(containers),
		Containers: containers,
	}

	var newest time.Time
	for _, ct := range containers {
		info, err := ParseLabels(ct.Labels)
		if err != nil {
			continue
		}
		if info.CreatedAt.After(newest) {
			newest = info.CreatedAt
			dep.Name = info.Name
			dep.Image = info.Image
			dep.Port = info.Port
			dep.CreatedAt = info.CreatedAt
		}
	}
	return dep
}

// determineStatus: running if any container runs, stopped if containers
// exist, absent otherwise.
func determineStatus(containers []model.ContainerInfo) model.DeploymentStatus {
	if len(containers) == 0 {
		return model.StatusAbsent
	}
	for _, ct := range containers {
		if ct.IsRunning() {
			return model.StatusRunning
		}
	}
	return model.StatusStopped
}
