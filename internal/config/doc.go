// Package config loads the docfill project configuration.
//
// The configuration lives in an optional docfill.yaml next to the
// Dockerfile. Every field has a default that reproduces the behaviour of
// the original build-and-run script, so a project without the file builds
// the "document-filler" image and publishes it on port 8000.
package config
