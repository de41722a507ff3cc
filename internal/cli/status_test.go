package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinji-kodama/docfill/internal/docker"
	"github.com/shinji-kodama/docfill/internal/model"
)

func TestFormatPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports []model.PortBinding
		want  string
	}{
		{"none", nil, "-"},
		{
			"single",
			[]model.PortBinding{{HostIP: "0.0.0.0", HostPort: 8000, ContainerPort: 8000, Protocol: "tcp"}},
			"8000->8000/tcp",
		},
		{
			"ipv4 and ipv6 collapse",
			[]model.PortBinding{
				{HostIP: "0.0.0.0", HostPort: 8000, ContainerPort: 8000, Protocol: "tcp"},
				{HostIP: "::", HostPort: 8000, ContainerPort: 8000, Protocol: "tcp"},
			},
			"8000->8000/tcp",
		},
		{
			"exposed only",
			[]model.PortBinding{{ContainerPort: 8000, Protocol: "tcp"}},
			"8000/tcp",
		},
		{
			"multiple",
			[]model.PortBinding{
				{HostPort: 8000, ContainerPort: 8000, Protocol: "tcp"},
				{HostPort: 9000, ContainerPort: 9000, Protocol: "udp"},
			},
			"8000->8000/tcp, 9000->9000/udp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPorts(tt.ports))
		})
	}
}

func TestMergeContainers(t *testing.T) {
	managed := []model.ContainerInfo{
		{ID: "b1", Name: "document-filler"},
	}
	publishers := []model.ContainerInfo{
		{ID: "b1", Name: "document-filler"},
		{ID: "a1", Name: "another-app"},
	}

	merged := mergeContainers(managed, publishers)
	if assert.Len(t, merged, 2) {
		assert.Equal(t, "another-app", merged[0].Name)
		assert.Equal(t, "document-filler", merged[1].Name)
	}
}

func TestContainerRows(t *testing.T) {
	rows := containerRows([]model.ContainerInfo{
		{
			ID:     "0123456789abcdef",
			Name:   "document-filler",
			Image:  "document-filler",
			State:  "running",
			Labels: map[string]string{docker.LabelManagedBy: docker.ManagedByValue},
			Ports:  []model.PortBinding{{HostPort: 8000, ContainerPort: 8000, Protocol: "tcp"}},
		},
		{ID: "fedcba", Name: "other", Image: "nginx", State: "exited"},
	})

	assert.Equal(t, []string{"document-filler", "0123456789ab", "document-filler", "running", "8000->8000/tcp", "yes"}, rows[0])
	assert.Equal(t, []string{"other", "fedcba", "nginx", "exited", "-", "no"}, rows[1])
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"NAME", "STATE"}, [][]string{{"document-filler", "running"}, {"short"}}, nil, true)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "document-filler")
	assert.Contains(t, out, "running")
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 3)

	assert.Empty(t, renderTable(nil, nil, nil, false))
}

func TestPrintStatusResultText(t *testing.T) {
	setJSONOutput(t, false)

	running := model.ContainerInfo{
		ID:     "0123456789abcdef",
		Name:   "document-filler",
		Image:  "document-filler",
		State:  "running",
		Labels: map[string]string{docker.LabelManagedBy: docker.ManagedByValue},
	}
	result := &statusResult{
		Deployment: &model.Deployment{
			Name:   "document-filler",
			Image:  "document-filler",
			Port:   8000,
			Status: model.StatusRunning,
		},
		Publishers:    []model.ContainerInfo{running},
		PortAvailable: false,
		URL:           "http://localhost:8000",
	}

	var buf bytes.Buffer
	printStatusResult(&buf, result, []model.ContainerInfo{running}, true)
	out := buf.String()

	assert.Contains(t, out, "document-filler (running)")
	assert.Contains(t, out, "http://localhost:8000")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "outside Docker")
}

func TestPrintStatusResultText_ForeignListener(t *testing.T) {
	setJSONOutput(t, false)

	result := &statusResult{
		Deployment:    &model.Deployment{Name: "document-filler", Image: "document-filler", Port: 8000, Status: model.StatusAbsent},
		PortAvailable: false,
	}

	var buf bytes.Buffer
	printStatusResult(&buf, result, nil, true)

	assert.Contains(t, buf.String(), "No containers found.")
	assert.Contains(t, buf.String(), "Port 8000 is in use by a process outside Docker.")
}
