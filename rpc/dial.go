package rpc

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/mdlayher/vsock"
)

// Network names accepted by Listen and DialAddr, matching the prefix a
// cpu namespace or daemon address string can carry: "host:port" for
// TCP, a bare "/path" for a Unix socket, and "cid:port" for a
// virtio-vsock guest/host channel.
const (
	NetTCP   = "tcp"
	NetUnix  = "unix"
	NetVsock = "vsock"
)

// Listen opens a listener for network/address, one of the three
// transports cpu's daemon can be reached over.
func Listen(network, address string) (net.Listener, error) {
	switch network {
	case NetTCP, NetUnix:
		return net.Listen(network, address)
	case NetVsock:
		cid, port, err := parseVsock(address)
		if err != nil {
			return nil, err
		}
		return vsock.ListenContextID(cid, port, nil)
	default:
		return nil, fmt.Errorf("rpc: unknown network %q", network)
	}
}

// DialAddr opens a connection to network/address.
func DialAddr(network, address string) (net.Conn, error) {
	switch network {
	case NetTCP, NetUnix:
		return net.Dial(network, address)
	case NetVsock:
		cid, port, err := parseVsock(address)
		if err != nil {
			return nil, err
		}
		return vsock.Dial(cid, port, nil)
	default:
		return nil, fmt.Errorf("rpc: unknown network %q", network)
	}
}

func parseVsock(address string) (cid, port uint32, err error) {
	parts := strings.SplitN(address, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("rpc: malformed vsock address %q, want cid:port", address)
	}
	c, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("rpc: malformed vsock cid %q: %w", parts[0], err)
	}
	p, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("rpc: malformed vsock port %q: %w", parts[1], err)
	}
	return uint32(c), uint32(p), nil
}
