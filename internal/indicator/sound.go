package indicator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueMatch
	cueCancel
)

const (
	cueSampleRate = 16000
	cueVolume     = 0.18
	cueNoteGap    = 22 * time.Millisecond
	cueFade       = 5 * time.Millisecond
)

// note is one sine tone of a cue melody.
type note struct {
	hz  float64
	dur time.Duration
}

// cueMelodies maps each cue to its tones; cancel descends where start rises.
var cueMelodies = map[cueKind][]note{
	cueStart:  {{880, 70 * time.Millisecond}, {1175, 70 * time.Millisecond}},
	cueStop:   {{620, 120 * time.Millisecond}},
	cueMatch:  {{659, 60 * time.Millisecond}, {784, 60 * time.Millisecond}, {1047, 110 * time.Millisecond}},
	cueCancel: {{480, 75 * time.Millisecond}, {360, 90 * time.Millisecond}},
}

var (
	renderedMu   sync.Mutex
	renderedCues = map[cueKind][]int16{}
)

func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSamples(ctx, samples)
}

// cueSamples renders a cue melody once and caches the PCM.
func cueSamples(kind cueKind) []int16 {
	melody, ok := cueMelodies[kind]
	if !ok {
		return nil
	}

	renderedMu.Lock()
	defer renderedMu.Unlock()
	if pcm, ok := renderedCues[kind]; ok {
		return pcm
	}
	pcm := renderMelody(melody)
	renderedCues[kind] = pcm
	return pcm
}

func playSamples(ctx context.Context, samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("earworm"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if len(remaining) == 0 || ctx.Err() != nil {
			return 0, pulse.EndOfData
		}
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("earworm cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// renderMelody concatenates notes separated by short silences.
func renderMelody(melody []note) []int16 {
	gap := samplesFor(cueNoteGap)
	var pcm []int16
	for i, n := range melody {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, renderNote(n)...)
	}
	return pcm
}

// renderNote synthesizes a sine tone with raised-cosine fade in and out.
func renderNote(n note) []int16 {
	count := samplesFor(n.dur)
	if count <= 0 || n.hz <= 0 {
		return nil
	}
	fade := max(1, min(count/10, samplesFor(cueFade)))

	pcm := make([]int16, count)
	for i := range pcm {
		edge := min(i, count-1-i)
		gain := 1.0
		if edge < fade {
			gain = 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
		}
		phase := 2 * math.Pi * n.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * cueVolume * gain * math.MaxInt16))
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
