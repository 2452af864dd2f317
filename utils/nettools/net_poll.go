//go:build darwin || linux

package nettools

import "golang.org/x/sys/unix"

// readable polls fd without blocking. An idle HTTP/1.1 connection has
// nothing to say, so any readiness means EOF, an error or garbage.
func readable(fd int) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return true
		}
		return n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
	}
}
