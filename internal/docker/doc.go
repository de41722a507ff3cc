// Package docker provides Docker Engine API wrappers and container
// lifecycle management for the docfill CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Image builds through the docker CLI, streaming output to the operator
//   - Finding and stopping containers that publish a given host port
//   - Creating and starting the service container with its port binding,
//     env file and management labels
//   - Listing, inspecting and reading logs of managed containers
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
