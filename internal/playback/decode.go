// Package playback decodes synthesized audio chunks and schedules gap-free
// sequential playback with pause/resume/stop and active-segment tracking.
package playback

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Format describes the PCM layout the playback device runs at. The device
// context is process-wide, so every buffer is decoded or resampled to this
// one format.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat matches the LINEAR16/PCM output the synthesis providers
// default to.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1}

// bytesPerFrame assumes 16-bit samples throughout.
func (f Format) bytesPerFrame() int { return f.Channels * 2 }

func (f Format) duration(pcmLen int) time.Duration {
	frames := pcmLen / f.bytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// SilenceDuration is the length of the substitute buffer used when a chunk
// cannot be decoded, long enough to read as a deliberate beat rather than a
// glitch.
const SilenceDuration = 750 * time.Millisecond

// Buffer is one decoded, playback-ready segment.
type Buffer struct {
	Index     int
	PCM       []byte
	Format    Format
	Duration  time.Duration
	Text      string
	Character string
	Silence   bool
}

// DecodeError reports a chunk whose audio could not be decoded. It is always
// absorbed by substituting silence, never propagated as a stage failure.
type DecodeError struct {
	Index  int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode chunk %d: %s", e.Index, e.Reason)
}

// DecodeChunk parses a RIFF/WAVE payload into a playback buffer normalized
// to DefaultFormat. On any parse failure it returns a fixed-duration silent
// buffer alongside a *DecodeError so the caller can log the substitution;
// playback ordering and timing are undisturbed either way.
func DecodeChunk(index int, data []byte, text, character string) (Buffer, error) {
	pcm, format, err := parseWAV(data)
	if err != nil {
		return SilenceBuffer(index, text, character), &DecodeError{Index: index, Reason: err.Error()}
	}
	duration := format.duration(len(pcm))
	return Buffer{
		Index:     index,
		PCM:       normalize(pcm, format),
		Format:    DefaultFormat,
		Duration:  duration,
		Text:      text,
		Character: character,
	}, nil
}

// SilenceBuffer builds the substitute buffer for an undecodable chunk.
func SilenceBuffer(index int, text, character string) Buffer {
	format := DefaultFormat
	frames := int(SilenceDuration * time.Duration(format.SampleRate) / time.Second)
	return Buffer{
		Index:     index,
		PCM:       make([]byte, frames*format.bytesPerFrame()),
		Format:    format,
		Duration:  SilenceDuration,
		Text:      text,
		Character: character,
		Silence:   true,
	}
}

// normalize converts pcm from src to DefaultFormat: stereo is downmixed to
// mono, then the sample rate is converted by linear interpolation. The
// device context runs at one fixed format, so every buffer must match it.
func normalize(pcm []byte, src Format) []byte {
	if src == DefaultFormat {
		return pcm
	}
	samples := toMonoSamples(pcm, src.Channels)
	if src.SampleRate != DefaultFormat.SampleRate {
		samples = resample(samples, src.SampleRate, DefaultFormat.SampleRate)
	}
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func toMonoSamples(pcm []byte, channels int) []int16 {
	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / (channels * 2)
	mono := make([]int16, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(int16(binary.LittleEndian.Uint16(pcm[(f*channels+ch)*2:])))
		}
		mono[f] = int16(sum / channels)
	}
	return mono
}

func resample(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	outLen := int(int64(len(in)) * int64(to) / int64(from))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	for i := range out {
		pos := float64(i) * float64(from) / float64(to)
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}

// parseWAV extracts 16-bit PCM and its format from a RIFF/WAVE container.
func parseWAV(data []byte) ([]byte, Format, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, Format{}, fmt.Errorf("not a RIFF/WAVE payload")
	}

	var format Format
	var haveFmt bool
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, Format{}, fmt.Errorf("truncated %q chunk", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, Format{}, fmt.Errorf("fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 { // PCM
				return nil, Format{}, fmt.Errorf("unsupported audio format %d", audioFormat)
			}
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != 16 {
				return nil, Format{}, fmt.Errorf("unsupported bit depth %d", bits)
			}
			format = Format{
				Channels:   int(binary.LittleEndian.Uint16(data[body+2 : body+4])),
				SampleRate: int(binary.LittleEndian.Uint32(data[body+4 : body+8])),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, Format{}, fmt.Errorf("data chunk before fmt chunk")
			}
			if chunkSize == 0 {
				return nil, Format{}, fmt.Errorf("empty data chunk")
			}
			return data[body : body+chunkSize], format, nil
		}

		// Chunks are word-aligned.
		offset = body + chunkSize + chunkSize%2
	}
	return nil, Format{}, fmt.Errorf("no data chunk found")
}
