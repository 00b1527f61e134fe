package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendRoundTrip(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			require.Equal(t, "status", req.Command)
			return Response{OK: true, State: "listening", Message: "ok", Song: "Hello by Adele", URL: "https://lis.tn/hello", Confidence: 0.92}
		}))
	}()

	resp, err := Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "listening", resp.State)
	require.Equal(t, "ok", resp.Message)
	require.Equal(t, "Hello by Adele", resp.Song)
	require.Equal(t, "https://lis.tn/hello", resp.URL)
	require.InDelta(t, 0.92, resp.Confidence, 1e-9)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestSendDecodeResponseError(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		_, _ = reader.ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, _ Request) Response {
			return Response{OK: true}
		}))
	}()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestProbe(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			if req.Command == "status" {
				return Response{OK: true, State: "idle"}
			}
			return Response{OK: false, Error: "bad"}
		}))
	}()

	alive, probeErr := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}

func TestServeCanonicalizesCommandAndRejectsEmpty(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			return Response{OK: true, Message: req.Command}
		}))
	}()

	resp, err := Send(context.Background(), socketPath, Request{Command: "  STOP "}, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, CommandStop, resp.Message)

	resp, err = Send(context.Background(), socketPath, Request{Command: " "}, 200*time.Millisecond)
	require.NoError(t, err)
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "command is required")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestForwardSuccessRejectionAndNoOwner(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "earworm.sock")

	_, handled, err := Forward(context.Background(), socketPath, CommandStatus)
	require.False(t, handled)
	require.NoError(t, err)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			if req.Command == CommandStatus {
				return Response{OK: true, State: "listening"}
			}
			return Response{OK: false, State: "identifying", Error: "cannot cancel while identifying"}
		}))
	}()

	resp, handled, err := Forward(context.Background(), socketPath, CommandStatus)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "listening", resp.State)

	resp, handled, err = Forward(context.Background(), socketPath, CommandCancel)
	require.True(t, handled)
	require.EqualError(t, err, "cannot cancel while identifying")
	require.Equal(t, "identifying", resp.State)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestForwardTreatsStaleFileAsNoOwner(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "earworm.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := Forward(context.Background(), socketPath, CommandStatus)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "earworm.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := Forward(context.Background(), socketPath, CommandStatus)
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), `forward command "status":`)

	<-done
	require.NoError(t, listener.Close())
}

func TestNoOwner(t *testing.T) {
	require.False(t, NoOwner(nil))
	require.True(t, NoOwner(os.ErrNotExist))
	require.True(t, NoOwner(syscall.ECONNREFUSED))
	require.True(t, NoOwner(errors.New("dial unix /tmp/earworm.sock: connect: no such file or directory")))
	require.False(t, NoOwner(errors.New("read response: EOF")))
}
