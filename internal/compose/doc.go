// Package compose generates and drives the docker compose setup for the
// Document Filler.
//
// The generated file declares two services selected by compose profiles:
//   - "app" (profile prod): the built image, published port, .env, restart policy
//   - "dev" (profile dev): the same image with the source tree bind-mounted
//     and uvicorn started with --reload
//
// Compose itself is invoked through the docker CLI plugin
// ("docker compose"), not the legacy docker-compose binary.
package compose
