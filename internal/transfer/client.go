package transfer

import (
	"context"
	"net"
	"net/http"
	"time"
)

// ConnectTimeout and IdleReadTimeout are spec §4.4 step 3's per-socket
// timeouts: no timeout is imposed on the transfer as a whole.
const (
	ConnectTimeout  = 30 * time.Second
	IdleReadTimeout = 30 * time.Second
)

// newHTTPClient builds a client with the default (spec §4.4 step 3)
// connect/idle timeouts.
func newHTTPClient() *http.Client {
	return newHTTPClientWithTimeouts(ConnectTimeout, IdleReadTimeout)
}

// newHTTPClientWithTimeouts builds a client that follows redirects
// transparently (HTTP->HTTP and HTTP->HTTPS both allowed, per spec
// §4.4 step 3 and §6.4) and enforces the given connect timeout plus a
// rolling idle-read timeout on the underlying connection.
//
// Grounded on lcalzada-xor-downurl's internal/downloader/client.go
// (http.Client with a CheckRedirect policy, context-scoped requests),
// extended with a read-deadline-refreshing net.Conn wrapper since none
// of the example repos' HTTP clients expose a configurable idle-body
// timeout — the corpus has no third-party HTTP client library with
// this knob, so the refresh is implemented directly against net.Conn,
// the mechanism net/http itself builds on.
func newHTTPClientWithTimeouts(connectTimeout, idleReadTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &idleTimeoutConn{Conn: conn, timeout: idleReadTimeout}, nil
		},
		// Redirects are followed by http.Client itself; the Transport
		// just needs to allow both schemes, which it does by default.
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// idleTimeoutConn refreshes its read deadline on every Read, turning a
// fixed net.Conn deadline into a rolling idle timeout: the connection
// is only killed if no bytes arrive for the configured duration, not
// if the whole transfer takes longer than it.
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}
