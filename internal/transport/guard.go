package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrPrivateAddress is wrapped by dial errors for refused destinations.
var ErrPrivateAddress = fmt.Errorf("access to private address denied")

// GuardedTransport returns a transport that rejects connections to private
// or loopback IP ranges, checked against the address actually dialled.
func GuardedTransport() *http.Transport {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = guardedDial(&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second})
	return base
}

func guardedDial(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if isPrivate(ip) {
			conn.Close()
			return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
		}

		return conn, nil
	}
}

func isPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
