package httpserver

import (
	"syscall"

	sys "golang.org/x/sys/unix"
)

// setReuseAddr sets SO_REUSEADDR on the listening socket so a restart can
// rebind the same port immediately instead of waiting out TIME_WAIT. Plugs
// into net.ListenConfig.Control the same way raw fds get reached for ioctl
// elsewhere in this codebase rather than going through a stdlib
// abstraction.
func setReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = sys.SetsockoptInt(int(fd), sys.SOL_SOCKET, sys.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
