//go:build !windows

package ipc

import (
	"net"
	"os"
)

// listenControl opens a Unix domain socket at addr, removing any stale
// socket file left behind by a previous unclean shutdown.
func listenControl(addr string) (net.Listener, error) {
	_ = os.Remove(addr)
	return net.Listen("unix", addr)
}
