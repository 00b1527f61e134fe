package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/earworm/internal/audio"
	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/recognize"
	"github.com/rbright/earworm/internal/session"
)

// Recorders opens microphone captures for a session controller.
func Recorders(cfg config.AudioConfig, logger *slog.Logger) session.StartRecorderFunc {
	return func(ctx context.Context) (session.Recorder, error) {
		selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
		if err != nil {
			return nil, classifyCaptureError(err)
		}
		if selection.Warning != "" && logger != nil {
			logger.Warn(selection.Warning)
		}

		capture, err := audio.StartCapture(ctx, selection.Device)
		if err != nil {
			return nil, classifyCaptureError(err)
		}
		if logger != nil {
			logger.Info("capture started", "device", describeDevice(selection.Device), "fallback", selection.Fallback)
		}
		return capture, nil
	}
}

func classifyCaptureError(err error) error {
	if audio.IsPermissionDenied(err) {
		return recognize.Wrap(recognize.ErrPermissionDenied, err)
	}
	return recognize.Wrap(recognize.ErrRecordingStartFailed, err)
}

// describeDevice formats device metadata for logs.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
