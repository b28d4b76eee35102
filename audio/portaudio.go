package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// micChunkFrames is the portaudio stream granularity. Read gathers as many
// chunks as it takes to fill the caller's buffer.
const micChunkFrames = 512

// MicSource captures mono int16 audio from the default input device. It
// satisfies Source; Read blocks until the requested buffer is full.
type MicSource struct {
	stream *portaudio.Stream
	chunk  []int16
}

// NewMicSource initializes portaudio and opens the default input stream at
// the given sample rate.
func NewMicSource(sampleRate int) (*MicSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("mic: initialize portaudio: %w", err)
	}

	m := &MicSource{
		chunk: make([]int16, micChunkFrames),
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), micChunkFrames, m.chunk)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("mic: open stream: %w", err)
	}
	m.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("mic: start stream: %w", err)
	}
	return m, nil
}

// Read fills buf chunk by chunk from the input stream.
func (m *MicSource) Read(buf []int16) error {
	filled := 0
	for filled < len(buf) {
		if err := m.stream.Read(); err != nil {
			return fmt.Errorf("mic: read: %w", err)
		}
		filled += copy(buf[filled:], m.chunk)
	}
	return nil
}

// Close stops the stream and tears down portaudio.
func (m *MicSource) Close() error {
	var first error
	if m.stream != nil {
		if err := m.stream.Stop(); err != nil && first == nil {
			first = err
		}
		if err := m.stream.Close(); err != nil && first == nil {
			first = err
		}
		m.stream = nil
	}
	if err := portaudio.Terminate(); err != nil && first == nil {
		first = err
	}
	return first
}
