package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeHeader(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x10, 0x20}

	out, err := Encode(pcm, Mono16(16000))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if len(out) != HeaderSize()+len(pcm) {
		t.Fatalf("encoded length: got %d, want %d", len(out), HeaderSize()+len(pcm))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Errorf("missing RIFF/WAVE magic: %q", out[:12])
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("riff size: got %d, want %d", got, 36+len(pcm))
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 1 {
		t.Errorf("channels: got %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 16000 {
		t.Errorf("sample rate: got %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(out[28:32]); got != 32000 {
		t.Errorf("byte rate: got %d, want 32000", got)
	}
	if got := binary.LittleEndian.Uint16(out[34:36]); got != 16 {
		t.Errorf("bits per sample: got %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size: got %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(out[44:], pcm) {
		t.Error("samples not copied verbatim after header")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sizes := []int{2, 320, 32000}
	for _, n := range sizes {
		pcm := make([]byte, n)
		for i := range pcm {
			pcm[i] = byte(i * 7)
		}

		out, err := Encode(pcm, Mono16(16000))
		if err != nil {
			t.Fatalf("Encode(%d bytes) error: %v", n, err)
		}

		f, samples, err := Decode(out)
		if err != nil {
			t.Fatalf("Decode(%d bytes) error: %v", n, err)
		}
		if f != Mono16(16000) {
			t.Errorf("format: got %+v", f)
		}
		if !bytes.Equal(samples, pcm) {
			t.Errorf("round trip of %d bytes altered samples", n)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		pcm    []byte
		format Format
		want   error
	}{
		{name: "empty frame", pcm: nil, format: Mono16(16000), want: ErrEmptyFrame},
		{name: "8-bit format", pcm: []byte{1, 2}, format: Format{SampleRate: 16000, Channels: 1, BitsPerSample: 8}, want: ErrUnsupported},
		{name: "zero sample rate", pcm: []byte{1, 2}, format: Mono16(0), want: ErrUnsupported},
		{name: "odd byte count", pcm: []byte{1, 2, 3}, format: Mono16(16000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.pcm, tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := Encode(pcm, Mono16(8000))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	// splice a LIST chunk with an odd length between fmt and data
	var spliced bytes.Buffer
	spliced.Write(out[:36])
	spliced.WriteString("LIST")
	binary.Write(&spliced, binary.LittleEndian, uint32(3))
	spliced.Write([]byte{'a', 'b', 'c', 0})
	spliced.Write(out[36:])

	f, samples, err := Decode(spliced.Bytes())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if f.SampleRate != 8000 {
		t.Errorf("sample rate: got %d, want 8000", f.SampleRate)
	}
	if !bytes.Equal(samples, pcm) {
		t.Errorf("samples: got %v, want %v", samples, pcm)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	inputs := map[string][]byte{
		"empty":     nil,
		"not riff":  []byte("OggS000000000000"),
		"no data":   []byte("RIFF\x04\x00\x00\x00WAVE"),
		"truncated": append([]byte("RIFF\x00\x00\x00\x00WAVE"), []byte("fmt \x10\x00\x00\x00")...),
	}

	for name, in := range inputs {
		if _, _, err := Decode(in); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
