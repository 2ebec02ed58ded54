//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// probe polls the socket with a zero timeout. An idle keep-alive
// connection should report no events at all: POLLIN on an idle socket
// means either a FIN (EOF) or stray bytes the pool cannot hand to the
// next request, and POLLERR/POLLHUP mean the socket is gone.
func probe(rc syscall.RawConn) (alive bool) {
	alive = true
	ctrlErr := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, err := unix.Poll(fds, 0)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				return // can't tell, let the caller try
			}
			if n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				alive = false
			}
			return
		}
	})
	if ctrlErr != nil {
		return true
	}
	return alive
}
