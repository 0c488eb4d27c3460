//go:build linux

package asyncio

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// socketReadable asks the kernel how many bytes are waiting on the socket
// behind the connection (SIOCINQ, which is FIONREAD elsewhere).  If there
// are none it also checks whether the other end has hung up.  supported is
// false if the connection is not backed by a socket.
func socketReadable(conn net.Conn) (n int, supported bool, err error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, false, nil
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, true, err
	}

	var ioctlErr error
	controlErr := raw.Control(func(fd uintptr) {
		n, ioctlErr = unix.IoctlGetInt(int(fd), unix.SIOCINQ)
		if ioctlErr != nil || n > 0 {
			return
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN | unix.POLLRDHUP}}
		_, pollErr := unix.Poll(fds, 0)
		if pollErr != nil {
			if pollErr != unix.EINTR {
				ioctlErr = pollErr
			}
			return
		}
		if fds[0].Revents&(unix.POLLRDHUP|unix.POLLHUP|unix.POLLERR) != 0 {
			ioctlErr = errHungUp
		}
	})

	if controlErr != nil {
		return 0, true, controlErr
	}

	return n, true, ioctlErr
}
