package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/leonardotrapani/streamscribe/internal/wav"
)

// Handshake configures the service and must precede any audio.
type Handshake struct {
	Language          string `json:"language"`
	Hotwords          string `json:"hotwords"`
	ManualPunctuation bool   `json:"manual_punctuation"`
}

// AudioMessage carries one base64-encoded WAV file holding exactly one frame.
type AudioMessage struct {
	Audio string `json:"audio"`
	UID   string `json:"uid"`
}

// StopMessage tells the service that capture has ended.
type StopMessage struct {
	StoppedRecording bool `json:"stoppedRecording"`
}

// Inbound is the interpreted form of a service message. Fields the client
// does not know about are ignored.
type Inbound struct {
	// Transcript is only meaningful when HasTranscript is true.
	Transcript    string
	HasTranscript bool
	// Finished is set when the "finished" key is present, whatever its value.
	Finished bool
	// Fields holds every top-level key as received.
	Fields map[string]json.RawMessage
}

func (h Handshake) Marshal() ([]byte, error) {
	return json.Marshal(h)
}

// NewStopMessage returns the encoded control message.
func NewStopMessage() []byte {
	// cannot fail for a struct with one bool field
	b, _ := json.Marshal(StopMessage{StoppedRecording: true})
	return b
}

// EncodeFrame wraps one raw PCM frame in a WAV container and serializes it as
// an audio message. It keeps no state between calls.
func EncodeFrame(frame []byte, format wav.Format, uid string) ([]byte, error) {
	container, err := wav.Encode(frame, format)
	if err != nil {
		return nil, &EncodingError{FrameLen: len(frame), Err: err}
	}

	msg := AudioMessage{
		Audio: base64.StdEncoding.EncodeToString(container),
		UID:   uid,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, &EncodingError{FrameLen: len(frame), Err: err}
	}
	return payload, nil
}

var errNotObject = errors.New("message is not a JSON object")

// ParseInbound interprets a service message. Anything that is not a JSON
// object yields a *ProtocolError.
func ParseInbound(payload []byte) (*Inbound, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ProtocolError{Payload: payload, Err: errNotObject}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ProtocolError{Payload: payload, Err: err}
	}

	msg := &Inbound{Fields: fields}

	if raw, ok := fields["transcript"]; ok {
		msg.HasTranscript = true
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			// non-string transcripts are kept in their JSON form
			text = string(raw)
		}
		msg.Transcript = text
	}

	if _, ok := fields["finished"]; ok {
		msg.Finished = true
	}

	return msg, nil
}
