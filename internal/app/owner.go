package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/assemblyai"
	"github.com/rbright/earworm/internal/audd"
	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/feed"
	"github.com/rbright/earworm/internal/genius"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/indicator"
	"github.com/rbright/earworm/internal/ipc"
	"github.com/rbright/earworm/internal/output"
	"github.com/rbright/earworm/internal/pipeline"
	"github.com/rbright/earworm/internal/recognize"
	"github.com/rbright/earworm/internal/session"
)

// owner holds the collaborators of one listening process.
type owner struct {
	controller *session.Controller
	store      history.Store
	hub        *feed.Hub
}

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := ipc.Forward(ctx, socketPath, ipc.CommandToggle)
	if handled {
		return r.printForwarded(resp, err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := ipc.Forward(ctx, socketPath, ipc.CommandToggle)
			return r.printForwarded(resp, forwardErr)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	own, err := newOwner(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = own.store.Close() }()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, own.controller)
	}()

	feedErrCh := make(chan error, 1)
	if own.hub != nil {
		feedListener, listenErr := net.Listen("tcp", cfg.Feed.Listen)
		if listenErr != nil {
			serverCancel()
			<-serverErrCh
			fmt.Fprintf(r.Stderr, "error: feed listen %s: %v\n", cfg.Feed.Listen, listenErr)
			return 1
		}
		logger.Info("feed listening", "addr", feedListener.Addr().String())
		go func() {
			feedErrCh <- own.hub.Serve(serverCtx, feedListener)
		}()
	} else {
		feedErrCh <- nil
	}

	result := own.controller.Run(ctx)
	serverCancel()
	serverErr := <-serverErrCh
	if feedErr := <-feedErrCh; feedErr != nil {
		logger.Warn("feed server failed", "error", feedErr.Error())
	}
	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", recognize.Message(result.Err))
		return 1
	}
	if result.Best == nil {
		fmt.Fprintln(r.Stdout, "no match")
		return 0
	}
	fmt.Fprintln(r.Stdout, formatSong(result.Best.Result.Label(), result.Best.Result.URL, result.Best.Confidence))
	return 0
}

func (r Runner) printForwarded(resp ipc.Response, err error) int {
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// newOwner opens history and wires the recognition pipeline into a controller.
func newOwner(ctx context.Context, cfg config.Config, logger *slog.Logger) (*owner, error) {
	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		return nil, err
	}

	own := &owner{store: store}
	var publisher session.Publisher
	if strings.TrimSpace(cfg.Feed.Listen) != "" {
		own.hub = feed.NewHub(logger)
		publisher = own.hub
	}

	own.controller = session.NewController(session.Options{
		Logger:        logger,
		Processor:     newPipeline(cfg, store, logger),
		StartRecorder: pipeline.Recorders(cfg.Audio, logger),
		Credentials:   func() error { return config.CheckCredentials(cfg) },
		Indicator:     indicator.New(cfg.Indicator, logger),
		Committer:     output.NewCommitter(cfg, logger),
		Publisher:     publisher,
		ChunkInterval: time.Duration(cfg.Recognition.ChunkIntervalMS) * time.Millisecond,
	})
	return own, nil
}

func newPipeline(cfg config.Config, store history.Store, logger *slog.Logger) *pipeline.Pipeline {
	var fingerprint recognize.FingerprintMatcher
	if config.FingerprintEnabled(cfg) {
		fingerprint = audd.New(nil, cfg.Endpoints.Fingerprint, cfg.Credentials.Fingerprint, logger)
	}
	return pipeline.New(pipeline.Options{
		Fingerprint: fingerprint,
		Transcriber: assemblyai.New(nil, cfg.Endpoints.Transcription, cfg.Credentials.Transcription, logger),
		Lyrics:      genius.New(nil, cfg.Endpoints.Lyrics, cfg.Credentials.Lyrics, logger),
		History:     store,
		Language:    cfg.Recognition.Language,
		DumpAudio:   cfg.Debug.EnableAudioDump,
		Logger:      logger,
	})
}

func openHistory(ctx context.Context, cfg config.HistoryConfig) (history.Store, error) {
	store, err := history.Open(ctx, history.Options{
		Backend:    cfg.Backend,
		SQLitePath: cfg.SQLitePath,
		RedisAddr:  cfg.RedisAddr,
		RedisKey:   cfg.RedisKey,
	})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}
