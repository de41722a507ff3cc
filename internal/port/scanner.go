package port

import (
	"context"
	"fmt"
	"net"
	"time"
)

// pollInterval is how often WaitUntilFree re-probes the port.
const pollInterval = 100 * time.Millisecond

// suggestRange is how far above a busy port SuggestPort searches.
const suggestRange = 100

// Scanner checks whether specific ports are available on the host machine.
//
// It uses the operating system's network stack (net.Listen) rather than parsing /proc/net or shelling out to lsof, which may require
// elevated permissions.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable checks whether a TCP port is free on the host machine.
//
// It binds all interfaces (":port") because Docker publishes on 0.0.0.0,
// so a listener on any interface conflicts.
func (s *Scanner) IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// FindAvailablePort scans [startPort, endPort] (inclusive) upward and
// returns the first free TCP port.
func (s *Scanner) FindAvailablePort(startPort, endPort int) (int, error) {
	if endPort > 65535 {
		endPort = 65535
	}
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found in range %d-%d", startPort, endPort)
}

// SuggestPort returns a free TCP port just above busy, for error messages
// that tell the operator which --port to try instead.
func (s *Scanner) SuggestPort(busy int) (int, error) {
	return s.FindAvailablePort(busy+1, busy+suggestRange)
}

// WaitUntilFree polls the TCP port until it can be bound or timeout
// elapses. Docker's userland proxy releases a published port shortly after
// the container stops, not at the moment ContainerStop returns.
//
// Returns true if the port became free.
func (s *Scanner) WaitUntilFree(ctx context.Context, port int, timeout time.Duration) bool {
	if s.IsPortAvailable(port) {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.IsPortAvailable(port)
		case <-ticker.C:
			if s.IsPortAvailable(port) {
				return true
			}
		}
	}
}
