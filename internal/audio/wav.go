package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV wraps little-endian s16 PCM in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int, channels int) ([]byte, error) {
	buf := &memFile{}
	if err := writeWAV(buf, pcm, sampleRate, channels); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVFile writes little-endian s16 PCM to path as WAV with mode 0600.
func WriteWAVFile(path string, pcm []byte, sampleRate int, channels int) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open wav file %q: %w", path, err)
	}
	if err := writeWAV(file, pcm, sampleRate, channels); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeWAV(out io.WriteSeeker, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := wav.NewEncoder(out, sampleRate, 16, channels, 1)
	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(intBuf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// memFile is the in-memory io.WriteSeeker the wav encoder needs to patch its header.
type memFile struct {
	data []byte
	pos  int64
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = m.pos + offset
	case io.SeekEnd:
		next = int64(len(m.data)) + offset
	default:
		return 0, errors.New("memfile: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("memfile: negative position")
	}
	m.pos = next
	return next, nil
}

func (m *memFile) Bytes() []byte {
	return bytes.Clone(m.data)
}
