// Package receipt binds a finished quest to a verifiable outcome record.
// The record carries a hash over every shot's fingerprint in canonical
// order, so two receipts agree exactly when the rendered content agrees.
package receipt
