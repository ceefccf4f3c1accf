package model

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Magic prefixes every model blob.
var Magic = []byte("ANNM")

// FormatVersion is the envelope layout version written by Encode.
const FormatVersion = 1

// Envelope is the binary container around a stage payload. The payload
// layout belongs to the stage package that decodes it.
type Envelope struct {
	Format  int    `msgpack:"format"`
	Kind    Kind   `msgpack:"kind"`
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
	Payload []byte `msgpack:"payload"`
}

// Ref returns the ref recorded in the envelope.
func (e Envelope) Ref() Ref {
	return Ref{Name: e.Name, Version: e.Version}
}

// Encode wraps payload in a blob for ref and kind.
func Encode(ref Ref, kind Kind, payload []byte) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("encode %s: unknown kind %q", ref, kind)
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	body, err := msgpack.Marshal(Envelope{
		Format:  FormatVersion,
		Kind:    kind,
		Name:    ref.Name,
		Version: ref.Version,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ref, err)
	}
	out := make([]byte, 0, len(Magic)+len(body))
	out = append(out, Magic...)
	return append(out, body...), nil
}

// Decode parses a blob envelope without interpreting its payload.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if !bytes.HasPrefix(data, Magic) {
		return env, fmt.Errorf("missing %q header", Magic)
	}
	if err := msgpack.Unmarshal(data[len(Magic):], &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Format != FormatVersion {
		return env, fmt.Errorf("unsupported format %d", env.Format)
	}
	if !env.Kind.Valid() {
		return env, fmt.Errorf("unknown kind %q", env.Kind)
	}
	return env, nil
}
