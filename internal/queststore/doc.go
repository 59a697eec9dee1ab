// Package queststore persists quests and their bound receipts in SQLite.
package queststore
