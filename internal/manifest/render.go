package manifest

import (
	"bytes"
	"fmt"
)

// Render produces the media playlist text. Entry lines depend only on the
// entry itself, so patching one shot changes exactly that shot's lines.
func (m *Manifest) Render() []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	buf.WriteString("#EXT-X-VERSION:7\n")
	fmt.Fprintf(&buf, "#EXT-X-TARGETDURATION:%d\n", m.targetDuration())
	fmt.Fprintf(&buf, "#EXT-X-MEDIA-SEQUENCE:%d\n", m.Version)
	for _, e := range m.Entries {
		fmt.Fprintf(&buf, "#EXTINF:%.3f,\n%s\n", e.Duration, e.URI)
	}
	buf.WriteString("#EXT-X-ENDLIST\n")
	return buf.Bytes()
}

// RenderMaster produces the master playlist text listing each variant.
func (m *Manifest) RenderMaster() []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	buf.WriteString("#EXT-X-VERSION:7\n")
	for _, v := range m.Variants {
		fmt.Fprintf(&buf, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n%s\n",
			v.Bandwidth, v.Width, v.Height, v.URI)
	}
	return buf.Bytes()
}

// EntryLine renders the two playlist lines for one entry. Patch locality
// tests compare these byte-for-byte across manifest versions.
func (e Entry) EntryLine() []byte {
	return []byte(fmt.Sprintf("#EXTINF:%.3f,\n%s\n", e.Duration, e.URI))
}
