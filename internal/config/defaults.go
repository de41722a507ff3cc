package config

import "time"

const (
	DefaultImage         = "document-filler"
	DefaultContainerName = "document-filler"
	DefaultPort          = 8000
)

// Default returns the configuration used when no docfill.yaml exists.
func Default() *Config {
	return &Config{
		Image:         DefaultImage,
		ContainerName: DefaultContainerName,
		Port:          DefaultPort,
		ContainerPort: DefaultPort,
		Dockerfile:    "Dockerfile",
		BuildContext:  ".",
		EnvFile:       ".env",
		EnvTemplate:   ".env.example",
		RestartPolicy: "unless-stopped",
		Health: Health{
			Path:    "/",
			Timeout: 30 * time.Second,
		},
		Compose: Compose{
			File:        "docker-compose.yml",
			SourceMount: "/app",
		},
	}
}
