package plan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"flowquest/internal/shotgraph"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		schema, schemaErr = compiler.Compile(schemaJSON)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("plan: compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// payload is the planner wire format.
type payload struct {
	Version     string                 `json:"version"`
	Shots       []*shotgraph.Shot      `json:"shots"`
	Edges       []shotgraph.Edge       `json:"edges"`
	Checkpoints []shotgraph.Checkpoint `json:"checkpoints"`
}

// Parse validates a planner payload against the wire schema and builds the
// shot graph. Structural violations are reported before graph semantics, so
// a malformed payload never reaches graph construction.
func Parse(data []byte) (*shotgraph.Graph, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	result := s.ValidateJSON(data)
	if !result.IsValid() {
		return nil, fmt.Errorf("plan: payload rejected by schema: %v", result.Errors)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("plan: decode payload: %w", err)
	}
	return shotgraph.New(p.Version, p.Shots, p.Edges, p.Checkpoints)
}
