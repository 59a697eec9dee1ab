package segment

import (
	"crypto/sha256"
	"encoding/hex"
)

// Quality selects an encoder preset. The preset is always supplied by the
// caller; the encoder never chooses one itself.
type Quality string

const (
	QualityPreview Quality = "preview"
	QualityHigh    Quality = "high"
)

// Bitrate returns the target bitrate for the preset in bits per second.
func (q Quality) Bitrate() int {
	if q == QualityHigh {
		return 6_000_000
	}
	return 1_200_000
}

// Metadata describes the encoded stream parameters.
type Metadata struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	FPS     int `json:"fps"`
	Bitrate int `json:"bitrate"`
}

// Segment is one playable media segment produced from a shot's frames.
// Duration is always frameCount/fps.
type Segment struct {
	Data     []byte   `json:"data"`
	Duration float64  `json:"duration"`
	Metadata Metadata `json:"metadata"`
}

// Checksum digests the segment payload; the render cache verifies it on read.
func (s Segment) Checksum() string {
	sum := sha256.Sum256(s.Data)
	return hex.EncodeToString(sum[:])
}
