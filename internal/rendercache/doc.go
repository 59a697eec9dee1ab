// Package rendercache is the content-addressed segment cache. Keys are scene
// fingerprints, so a hit is valid by construction and needs no freshness
// check beyond TTL and an integrity checksum. Concurrent misses on the same
// fingerprint coalesce into one render.
package rendercache
