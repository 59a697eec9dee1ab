package scene

import (
	"bytes"
	"fmt"
	"strconv"
)

// Layer is one composited element of a frame: an overlay placed at a vertical
// offset with an opacity resolved from its fade windows.
type Layer struct {
	Kind    string
	Text    string
	Opacity float64
	OffsetY int
}

// Frame is the deterministic composition result for one frame index. It
// carries draw state rather than pixels; the segment encoder digests the
// canonical byte form.
type Frame struct {
	Index  int
	Total  int
	Width  int
	Height int
	Layers []Layer
}

// Encode renders the frame into a canonical byte form. Two frames produced
// from identical inputs encode byte-identically, which is what makes cached
// segments content-addressable.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(64 + len(f.Layers)*48)
	fmt.Fprintf(&buf, "frame %d/%d %dx%d\n", f.Index, f.Total, f.Width, f.Height)
	for _, layer := range f.Layers {
		buf.WriteString(layer.Kind)
		buf.WriteByte('|')
		buf.WriteString(layer.Text)
		buf.WriteByte('|')
		buf.WriteString(strconv.FormatFloat(quantize(layer.Opacity), 'f', 4, 64))
		buf.WriteByte('|')
		buf.WriteString(strconv.Itoa(layer.OffsetY))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// quantize clamps opacity into [0,1] at 4 decimal places so encoding is not
// sensitive to sub-visible float noise.
func quantize(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float64(int(v*10000+0.5)) / 10000
}
