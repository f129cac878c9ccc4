package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/mdlayher/vsock"
)

// listen opens the listener named by address: "tcp:<host:port>" or "vsock:<port>".
func listen(address string) (net.Listener, error) {
	network, addr, ok := strings.Cut(address, ":")
	if !ok {
		return nil, fmt.Errorf("invalid listen address %q (want tcp:<addr> or vsock:<port>)", address)
	}

	switch network {
	case "tcp":
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return l, nil
	case "vsock":
		port, err := strconv.ParseUint(addr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vsock port %q: %w", addr, err)
		}
		l, err := vsock.Listen(uint32(port), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported network %q (want tcp or vsock)", network)
	}
}
