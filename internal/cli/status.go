package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/deploy"
	"github.com/shinji-kodama/docfill/internal/docker"
	"github.com/shinji-kodama/docfill/internal/model"
	"github.com/shinji-kodama/docfill/internal/port"
)

// statusResult is the JSON shape of the "status" output.
type statusResult struct {
	Deployment *model.Deployment `json:"deployment"`

	// Publishers are the running containers on the service port,
	// docfill-managed or not.
	Publishers []model.ContainerInfo `json:"publishers"`

	// PortAvailable is true when nothing on the host listens on the port.
	PortAvailable bool   `json:"portAvailable"`
	URL           string `json:"url,omitempty"`
}

// NewStatusCommand creates the "status" subcommand.
func NewStatusCommand() *cobra.Command {
	var portFlag int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the service container and who holds the service port",
		Long: `Show docfill-managed containers and every running container that
publishes the service port.

Examples:
  docfill status
  docfill status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, portFlag)
		},
	}

	cmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Host port (default from config)")
	return cmd
}

func runStatus(cmd *cobra.Command, portFlag int) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(config.Overrides{Port: portFlag})
	if err != nil {
		return err
	}

	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	managed, err := cli.ListManaged(ctx)
	if err != nil {
		return err
	}
	publishers, err := cli.ListPublishing(ctx, cfg.Port)
	if err != nil {
		return err
	}
	VerboseLog("Found %d managed container(s), %d on port %d", len(managed), len(publishers), cfg.Port)

	// A container started by hand under the service name is shown even
	// though it carries no docfill labels.
	listed := managed
	named, found, err := cli.FindByName(ctx, cfg.ContainerName)
	if err != nil {
		return err
	}
	if found {
		listed = append(listed, named)
	}

	result := &statusResult{
		Deployment:    docker.BuildDeployment(managed, cfg.ContainerName, cfg.Image, cfg.Port),
		Publishers:    publishers,
		PortAvailable: port.NewScanner().IsPortAvailable(cfg.Port),
	}
	if result.Deployment.Status == model.StatusRunning {
		result.URL = deploy.URL(result.Deployment.Port)
	}

	printStatusResult(cmd.OutOrStdout(), result, listed, !stdoutIsTerminal())
	return nil
}

func printStatusResult(w io.Writer, result *statusResult, listed []model.ContainerInfo, plain bool) {
	if IsJSONOutput() {
		writeJSON(w, result)
		return
	}
	printStatusResultText(w, result, listed, plain)
}

func printStatusResultText(w io.Writer, result *statusResult, listed []model.ContainerInfo, plain bool) {
	d := result.Deployment
	fmt.Fprintf(w, "Service:  %s (%s)\n", d.Name, d.Status)
	fmt.Fprintf(w, "Image:    %s\n", d.Image)
	if result.URL != "" {
		fmt.Fprintf(w, "URL:      %s\n", result.URL)
	}
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Started:  %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	rows := containerRows(mergeContainers(listed, result.Publishers))
	if len(rows) == 0 {
		fmt.Fprintln(w, "\nNo containers found.")
	} else {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable(
			[]string{"NAME", "ID", "IMAGE", "STATE", "PORTS", "MANAGED"},
			rows, nil, plain))
	}

	if len(result.Publishers) == 0 && !result.PortAvailable {
		fmt.Fprintf(w, "\nPort %d is in use by a process outside Docker.\n", d.Port)
	}
}

// mergeContainers unions two container lists by ID, sorted by name.
func mergeContainers(lists ...[]model.ContainerInfo) []model.ContainerInfo {
	seen := make(map[string]bool)
	var merged []model.ContainerInfo
	for _, list := range lists {
		for _, c := range list {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			merged = append(merged, c)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged
}

func containerRows(containers []model.ContainerInfo) [][]string {
	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		managed := "no"
		if docker.IsManaged(c.Labels) {
			managed = "yes"
		}
		rows = append(rows, []string{
			c.Name,
			c.ShortID(),
			c.Image,
			c.State,
			formatPorts(c.Ports),
			managed,
		})
	}
	return rows
}

// formatPorts renders published ports compactly. Docker reports IPv4 and
// IPv6 bindings of the same port separately; they are shown once.
// Returns "-" when nothing is published.
func formatPorts(ports []model.PortBinding) string {
	if len(ports) == 0 {
		return "-"
	}

	seen := make(map[string]bool)
	var parts []string
	for _, p := range ports {
		var s string
		if p.HostPort == 0 {
			s = strconv.Itoa(p.ContainerPort) + "/" + p.Protocol
		} else {
			s = fmt.Sprintf("%d->%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
