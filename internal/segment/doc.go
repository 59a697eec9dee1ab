// Package segment encodes composited frames into playable media segments.
//
// The codec is deterministic and in-process: a segment is a container of
// canonical frame digests plus stream metadata, so identical frames always
// encode byte-identically. Transient encode failures are retried with
// doubling backoff; persistent failure surfaces as a shot-scoped error.
package segment
