//go:build windows

package ipc

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// listenControl opens a named pipe at addr (e.g. `\\.\pipe\sonorium`).
func listenControl(addr string) (net.Listener, error) {
	return winio.ListenPipe(addr, nil)
}
