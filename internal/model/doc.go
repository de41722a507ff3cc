// Package model defines the domain types and value objects for the
// docfill CLI.
//
// This package contains pure data structures with no external dependencies.
// Deployments and containers are transient representations reconstructed
// from the Docker API at runtime; the only state docfill owns on disk is
// the project's .env file.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries an exit code and an error kind for proper OS
// process exit handling and machine-readable error output.
package model
