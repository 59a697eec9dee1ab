package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldQuestID is the standardized structured logging key for quest identifiers.
	FieldQuestID = "quest_id"
	// FieldShotID is the standardized structured logging key for shot identifiers.
	FieldShotID = "shot_id"
	// FieldStepID is the standardized structured logging key for checkpoint step identifiers.
	FieldStepID = "step_id"
	// FieldFingerprint is the standardized structured logging key for shot fingerprints.
	FieldFingerprint = "fingerprint"
	// FieldGeneration is the standardized structured logging key for graph generation counters.
	FieldGeneration = "generation"
	// FieldEventType classifies log events for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests an operator next step alongside warnings and errors.
	FieldErrorHint = "error_hint"
)
