package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const headerSize = 44

var (
	ErrEmptyFrame   = errors.New("empty audio frame")
	ErrNotWAV       = errors.New("not a RIFF/WAVE container")
	ErrUnsupported  = errors.New("unsupported WAV encoding")
	ErrShortPayload = errors.New("WAV data chunk truncated")
)

// Format describes linear PCM audio. Only 16-bit samples are supported.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Mono16 is the format the transcription service expects.
func Mono16(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16}
}

// BlockAlign is the size in bytes of one sample across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupported, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channels %d", ErrUnsupported, f.Channels)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupported, f.BitsPerSample)
	}
	return nil
}

// Encode wraps raw little-endian PCM in a canonical 44-byte WAV header.
func Encode(pcm []byte, f Format) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(pcm)%f.BlockAlign() != 0 {
		return nil, fmt.Errorf("frame of %d bytes is not a whole number of %d-byte samples", len(pcm), f.BlockAlign())
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(pcm))

	dataSize := len(pcm)

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))              // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))               // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))      // number of channels
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))    // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(f.ByteRate()))    // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(f.BlockAlign()))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(f.BitsPerSample)) // bits per sample

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// Decode parses a PCM WAV container and returns its format and sample data.
// Chunks other than "fmt " and "data" are skipped.
func Decode(data []byte) (Format, []byte, error) {
	var f Format
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return f, nil, ErrNotWAV
	}

	var haveFmt bool
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return f, nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAV, size)
			}
			if format := binary.LittleEndian.Uint16(data[body : body+2]); format != 1 {
				return f, nil, fmt.Errorf("%w: format tag %d", ErrUnsupported, format)
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			if err := f.validate(); err != nil {
				return f, nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return f, nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			if body+size > len(data) {
				return f, nil, ErrShortPayload
			}
			return f, data[body : body+size], nil
		}

		// chunks are word aligned
		off = body + size + size%2
	}

	return f, nil, fmt.Errorf("%w: no data chunk", ErrNotWAV)
}

// HeaderSize returns the length of the header Encode writes.
func HeaderSize() int { return headerSize }
