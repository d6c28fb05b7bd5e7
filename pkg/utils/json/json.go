// Package json wraps JSON serialization for the service. It uses sonic on
// amd64/arm64 and falls back to encoding/json elsewhere, so callers never
// have to care which implementation is active.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v interface{}) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v interface{}) error

	// NewEncoder creates a streaming encoder writing to w.
	NewEncoder func(w io.Writer) Encoder

	// NewDecoder creates a streaming decoder reading from r.
	NewDecoder func(r io.Reader) Decoder

	usingSonic bool
)

// Encoder is the subset of the JSON encoder used by this project.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder is the subset of the JSON decoder used by this project.
type Decoder interface {
	Decode(v interface{}) error
}

func init() {
	// Sonic only ships JIT codecs for amd64 and arm64.
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		Marshal = sonic.Marshal
		Unmarshal = sonic.Unmarshal
		NewEncoder = func(w io.Writer) Encoder {
			return sonic.ConfigDefault.NewEncoder(w)
		}
		NewDecoder = func(r io.Reader) Decoder {
			return sonic.ConfigDefault.NewDecoder(r)
		}
		usingSonic = true
	} else {
		Marshal = stdjson.Marshal
		Unmarshal = stdjson.Unmarshal
		NewEncoder = func(w io.Writer) Encoder {
			return stdjson.NewEncoder(w)
		}
		NewDecoder = func(r io.Reader) Decoder {
			return stdjson.NewDecoder(r)
		}
	}
}

// MarshalString encodes v and returns the result as a string.
func MarshalString(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsUsingSonic reports whether the sonic implementation is active.
func IsUsingSonic() bool {
	return usingSonic
}
