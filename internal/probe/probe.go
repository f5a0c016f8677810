// Package probe measures TCP connect latency to a single endpoint.
package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"latencywatch/internal/models"
)

// DefaultTimeout is the per-probe deadline used by the scheduler.
const DefaultTimeout = 4 * time.Second

// ErrTimeout reports that no handshake completed before the deadline.
var ErrTimeout = errors.New("timeout")

// ConnectError wraps a transport failure reported before the deadline.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return "connect " + e.Addr + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Dialer opens connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober times TCP handshakes. The zero value dials with a fresh net.Dialer.
type Prober struct {
	Dialer Dialer
}

// New returns a prober using the standard dialer.
func New() *Prober {
	return &Prober{Dialer: &net.Dialer{}}
}

// Measure connects to host:port and returns the handshake time in whole
// milliseconds. The connection is closed straight away.
func (p *Prober) Measure(ctx context.Context, host string, port int, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := p.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	elapsed := time.Since(started)
	if err != nil {
		if isTimeout(ctx, err) {
			return 0, ErrTimeout
		}
		return 0, &ConnectError{Addr: address, Err: err}
	}
	_ = conn.Close()

	return int64(elapsed / time.Millisecond), nil
}

// StatusOf maps a Measure error onto a sample status.
func StatusOf(err error) models.Status {
	switch {
	case err == nil:
		return models.StatusOK
	case errors.Is(err, ErrTimeout):
		return models.StatusTimeout
	default:
		return models.StatusError
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
