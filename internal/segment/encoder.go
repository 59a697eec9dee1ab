package segment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flowquest/internal/logging"
	"flowquest/internal/scene"
)

// ErrEncodeFailure marks transient encoder errors eligible for retry.
var ErrEncodeFailure = errors.New("encode failure")

// codecHook allows tests to stub the frame codec and inject transient failures.
var codecHook = encodeFrames

// Encoder turns rendered frames into media segments with bounded retry.
type Encoder struct {
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// NewEncoder builds an encoder. retries is the total attempt budget (minimum
// one attempt); backoff doubles after each failed attempt.
func NewEncoder(retries int, backoff time.Duration, logger *slog.Logger) *Encoder {
	if retries < 1 {
		retries = 1
	}
	return &Encoder{
		retries: retries,
		backoff: backoff,
		logger:  logging.NewComponentLogger(logger, "segment"),
	}
}

// Encode produces a segment from the frame sequence. Failures tagged with
// ErrEncodeFailure are retried with doubling backoff up to the attempt budget;
// other errors and context cancellation abort immediately.
func (e *Encoder) Encode(ctx context.Context, frames []scene.Frame, fps int, quality Quality) (Segment, error) {
	if len(frames) == 0 {
		return Segment{}, errors.New("segment: no frames to encode")
	}
	if fps <= 0 {
		return Segment{}, fmt.Errorf("segment: fps must be positive, got %d", fps)
	}

	delay := e.backoff
	var lastErr error
	for attempt := 1; attempt <= e.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Segment{}, err
		}
		seg, err := codecHook(frames, fps, quality)
		if err == nil {
			return seg, nil
		}
		lastErr = err
		if !errors.Is(err, ErrEncodeFailure) {
			return Segment{}, err
		}
		if attempt == e.retries {
			break
		}
		e.logger.Warn("encode attempt failed, retrying",
			logging.Int("attempt", attempt),
			logging.Error(err),
			logging.String(logging.FieldEventType, "encode_retry"),
		)
		select {
		case <-ctx.Done():
			return Segment{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return Segment{}, fmt.Errorf("segment: encode failed after %d attempts: %w", e.retries, lastErr)
}

// encodeFrames is the deterministic in-process codec: a small container of
// frame digests. Identical frames at identical settings produce identical
// bytes, which the cache and receipt hashing rely on.
func encodeFrames(frames []scene.Frame, fps int, quality Quality) (Segment, error) {
	width, height := frames[0].Width, frames[0].Height

	var buf bytes.Buffer
	buf.Grow(64 + len(frames)*65)
	fmt.Fprintf(&buf, "FQSEG1 %dx%d@%d %s\n", width, height, fps, quality)
	for _, frame := range frames {
		sum := sha256.Sum256(frame.Encode())
		buf.WriteString(hex.EncodeToString(sum[:]))
		buf.WriteByte('\n')
	}

	return Segment{
		Data:     buf.Bytes(),
		Duration: float64(len(frames)) / float64(fps),
		Metadata: Metadata{
			Width:   width,
			Height:  height,
			FPS:     fps,
			Bitrate: quality.Bitrate(),
		},
	}, nil
}
