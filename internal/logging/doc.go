// Package logging builds the slog loggers used across flowquest and defines
// the standardized attribute keys (quest_id, shot_id, fingerprint, ...) that
// keep structured output greppable.
//
// Construct loggers through New or NewFromConfig; attach component names with
// NewComponentLogger so the console handler can prefix messages consistently.
package logging
