package testutil

import (
	"fmt"
	"net"
	"slices"
	"sync"
)

// recentPortLimit bounds how many handed-out ports are remembered.
const recentPortLimit = 256

var (
	recentPortsMu sync.Mutex
	recentPorts   []int
)

// GetFreePort returns a TCP port on 127.0.0.1 that was free a moment ago.
// Ports handed out recently are skipped, so tests that start several
// listeners in a row get distinct ports. It panics if no port can be found.
func GetFreePort() int {
	recentPortsMu.Lock()
	defer recentPortsMu.Unlock()

	for attempt := 0; attempt < 100; attempt++ {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			panic(fmt.Sprintf("failed to get free port: %v", err))
		}
		port := lis.Addr().(*net.TCPAddr).Port
		lis.Close()

		if slices.Contains(recentPorts, port) {
			continue
		}
		recentPorts = append(recentPorts, port)
		if len(recentPorts) > recentPortLimit {
			recentPorts = recentPorts[1:]
		}
		return port
	}
	panic("failed to get a unique free port")
}

// GetFreeAddress returns "127.0.0.1:<port>" for a port from GetFreePort.
// Servers under test listen on it, e.g. streamserver.Config.HTTPAddr.
func GetFreeAddress() string {
	return fmt.Sprintf("127.0.0.1:%d", GetFreePort())
}
