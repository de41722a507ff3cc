package docker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Label key constants define the Docker label keys docfill stamps on the
// containers it starts. They let status, stop and logs find the deployment
// again without any state file on disk.
const (
	// LabelPrefix is the common prefix for all docfill labels.
	LabelPrefix = "docfill."

	// LabelManagedBy identifies containers started by docfill.
	// Key: "docfill.managed-by", Value: always "docfill".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelName stores the configured container name.
	LabelName = LabelPrefix + "name"

	// LabelImage stores the image reference the container was started from.
	LabelImage = LabelPrefix + "image"

	// LabelPort stores the published host port.
	LabelPort = LabelPrefix + "port"

	// LabelCreatedAt stores the RFC3339 timestamp of the launch.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "docfill"

// LaunchInfo is the metadata recorded on a launched container.
type LaunchInfo struct {
	Name      string
	Image     string
	Port      int
	CreatedAt time.Time
}

// BuildLabels constructs the Docker label map for a launch.
func BuildLabels(info LaunchInfo) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelName:      info.Name,
		LabelImage:     info.Image,
		LabelPort:      strconv.Itoa(info.Port),
		LabelCreatedAt: info.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs LaunchInfo from container labels. It is the
// inverse of BuildLabels; every label is required.
func ParseLabels(labels map[string]string) (*LaunchInfo, error) {
	requiredKeys := []string{
		LabelManagedBy,
		LabelName,
		LabelImage,
		LabelPort,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	port, err := strconv.Atoi(labels[LabelPort])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelPort, err)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return &LaunchInfo{
		Name:      labels[LabelName],
		Image:     labels[LabelImage],
		Port:      port,
		CreatedAt: createdAt,
	}, nil
}

// IsManaged reports whether labels carry the docfill management label.
func IsManaged(labels map[string]string) bool {
	return labels[LabelManagedBy] == ManagedByValue
}
