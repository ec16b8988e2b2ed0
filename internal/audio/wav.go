// Package audio holds the small amount of PCM/WAV handling the server needs
// without shelling out to an external engine.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const wavHeaderSize = 44

// Format describes interleaved signed 16-bit little endian PCM
type Format struct {
	SampleRate int
	Channels   int
}

// SpeechFormat is what the transcription engines expect
var SpeechFormat = Format{SampleRate: 16000, Channels: 1}

// EncodeWAV wraps raw s16le PCM samples in a canonical RIFF/WAVE header
func EncodeWAV(pcm []byte, f Format) []byte {
	const bitsPerSample = 16
	blockAlign := f.Channels * bitsPerSample / 8
	byteRate := f.SampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// IsWAV reports whether data starts with a RIFF/WAVE header
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV returns the format and the data chunk of a PCM WAV file
func DecodeWAV(data []byte) (Format, []byte, error) {
	if !IsWAV(data) {
		return Format{}, nil, errors.New("not a RIFF/WAVE file")
	}

	var f Format
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, errors.New("short fmt chunk")
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
		case "data":
			if f.SampleRate == 0 {
				return Format{}, nil, errors.New("data chunk before fmt chunk")
			}
			return f, data[body : body+size], nil
		}
		offset = body + size + size%2
	}
	return Format{}, nil, errors.New("missing data chunk")
}

// Tone parameters of the synthesis fallback
const (
	fallbackSampleRate = 44100
	fallbackFrequency  = 440.0
	fallbackAmplitude  = 0.3
	fallbackSeconds    = 1
)

// FallbackTone returns one second of a 440 Hz sine as a mono 16-bit WAV.
// It is deterministic and always decodes to a non-empty buffer.
func FallbackTone() []byte {
	n := fallbackSampleRate * fallbackSeconds
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := fallbackAmplitude * math.Sin(2*math.Pi*fallbackFrequency*float64(i)/fallbackSampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return EncodeWAV(pcm, Format{SampleRate: fallbackSampleRate, Channels: 1})
}
