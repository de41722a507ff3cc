// Package port probes host port availability for the service port.
//
// After docfill stops the containers publishing the service port, the port
// may still be held by something Docker does not know about (a local
// uvicorn started by hand, another proxy). The Scanner asks the OS directly
// so the launcher can warn and suggest an alternative before the engine
// fails with a bind error.
package port
