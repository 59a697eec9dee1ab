// Package quest is the service facade over the full pipeline: it plans a
// quest from a template, keeps a delta render engine per active quest,
// applies checkpoint answers, verifies outcomes, and exports artifacts with
// a bound receipt.
package quest
