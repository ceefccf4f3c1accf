package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/cognicore/annotate/pkg/annotate/annoterr"
)

// Fetch reads the raw blob for ref. A resource the locator cannot open,
// missing or not, is reported as *annoterr.ModelNotFoundError; a stream
// that fails mid-read is reported as *annoterr.ModelCorruptError. The
// locator's error stays reachable through Unwrap.
func Fetch(ctx context.Context, loc Locator, ref Ref) ([]byte, error) {
	if loc == nil {
		return nil, &annoterr.ModelNotFoundError{Model: ref.String(), Err: errors.New("no locator")}
	}
	rc, err := loc.Open(ctx, ref)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("open: %w", err)
		}
		return nil, &annoterr.ModelNotFoundError{Model: ref.String(), Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &annoterr.ModelCorruptError{Model: ref.String(), Reason: "read failed", Err: err}
	}
	return data, nil
}

// Unwrap checks that data is a blob of the expected kind and ref and returns
// its payload. Every failure is reported as *annoterr.ModelCorruptError.
func Unwrap(data []byte, ref Ref, kind Kind) ([]byte, error) {
	env, err := Decode(data)
	if err != nil {
		return nil, &annoterr.ModelCorruptError{Model: ref.String(), Err: err}
	}
	if env.Kind != kind {
		return nil, &annoterr.ModelCorruptError{
			Model:  ref.String(),
			Reason: fmt.Sprintf("kind %q, want %q", env.Kind, kind),
		}
	}
	if env.Ref() != ref {
		return nil, &annoterr.ModelCorruptError{
			Model:  ref.String(),
			Reason: fmt.Sprintf("blob declares %s", env.Ref()),
		}
	}
	return env.Payload, nil
}

// Load fetches the blob for ref, checks its kind and hands the payload to
// decode. Decode failures are reported as *annoterr.ModelCorruptError.
// Loading has no side effects beyond the read and may be repeated.
func Load[M any](ctx context.Context, loc Locator, ref Ref, kind Kind, decode func(payload []byte) (M, error)) (M, int, error) {
	var zero M
	data, err := Fetch(ctx, loc, ref)
	if err != nil {
		return zero, 0, err
	}
	payload, err := Unwrap(data, ref, kind)
	if err != nil {
		return zero, len(data), err
	}
	m, err := decode(payload)
	if err != nil {
		return zero, len(data), &annoterr.ModelCorruptError{Model: ref.String(), Err: err}
	}
	return m, len(data), nil
}
