package utils

import (
	"log/slog"
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// FreePort asks the OS for a TCP port that is currently unused on host. The port is
// released again before returning, so a caller racing other processes may still lose it.
func FreePort(host string) (int, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, errors.Wrapf(err, "no free port on %q", host)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			slog.Error("failed to release port", "addr", listener.Addr().String(), "error", err)
		}
	}()

	_, port, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		return 0, errors.Wrap(err, "unexpected listener address")
	}
	return strconv.Atoi(port)
}
