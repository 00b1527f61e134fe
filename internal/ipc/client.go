package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// ForwardTimeout bounds one CLI-to-owner roundtrip.
const ForwardTimeout = 220 * time.Millisecond

// Send opens a unix-socket request/response roundtrip with a deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrDeadlineExceeded) {
			return Response{}, fmt.Errorf("read response: %w", err)
		}
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Forward sends command to the session owner. handled is false when no
// owner is listening on path; a rejected command comes back as an error
// alongside the owner's response.
func Forward(ctx context.Context, path string, command string) (Response, bool, error) {
	resp, err := Send(ctx, path, Request{Command: command}, ForwardTimeout)
	switch {
	case err == nil && resp.OK:
		return resp, true, nil
	case err == nil:
		return resp, true, errors.New(resp.Error)
	case NoOwner(err):
		return Response{}, false, nil
	default:
		return Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
}

// Probe checks whether a responsive owner is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	if err == nil {
		return true, nil
	}
	if NoOwner(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}

// NoOwner reports dial failures that mean nothing serves the socket:
// the path is missing, or it exists without a listener.
func NoOwner(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		strings.Contains(err.Error(), "no such file or directory")
}
