//go:build !linux

package asyncio

import "net"

// socketReadable is not supported on this platform, so Available falls
// back to peeking at the connection.
func socketReadable(conn net.Conn) (n int, supported bool, err error) {
	return 0, false, nil
}
