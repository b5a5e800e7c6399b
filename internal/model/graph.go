package model

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type Entity struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

type Relationship struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	RelType  string `json:"rel_type"`
}

// Graph is the relationship map extracted from one scenario.
type Graph struct {
	Entities    []Entity       `json:"entities"`
	Connections []Relationship `json:"connections"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func NewEntity(id, label, name string) (Entity, error) {
	if !ValidID(id) {
		return Entity{}, &ValidationError{Field: "id", Message: fmt.Sprintf("entity id %q must be alphanumeric", id)}
	}
	return Entity{ID: id, Label: label, Name: name}, nil
}

func (g Graph) Validate() error {
	ids := make(map[string]struct{}, len(g.Entities))
	for i, e := range g.Entities {
		if !ValidID(e.ID) {
			return &ValidationError{
				Field:   fmt.Sprintf("entities[%d].id", i),
				Message: fmt.Sprintf("entity id %q must be alphanumeric", e.ID),
			}
		}
		if _, exists := ids[e.ID]; exists {
			return &ValidationError{
				Field:   fmt.Sprintf("entities[%d].id", i),
				Message: fmt.Sprintf("duplicate entity id %q", e.ID),
			}
		}
		ids[e.ID] = struct{}{}
	}
	for i, c := range g.Connections {
		if _, ok := ids[c.SourceID]; !ok {
			return &ValidationError{
				Field:   fmt.Sprintf("connections[%d].source_id", i),
				Message: fmt.Sprintf("unknown entity %q", c.SourceID),
			}
		}
		if _, ok := ids[c.TargetID]; !ok {
			return &ValidationError{
				Field:   fmt.Sprintf("connections[%d].target_id", i),
				Message: fmt.Sprintf("unknown entity %q", c.TargetID),
			}
		}
	}
	return nil
}

func (g Graph) Empty() bool {
	return len(g.Entities) == 0
}

func (g Graph) Clone() Graph {
	out := Graph{
		Entities:    make([]Entity, len(g.Entities)),
		Connections: make([]Relationship, len(g.Connections)),
	}
	copy(out.Entities, g.Entities)
	copy(out.Connections, g.Connections)
	return out
}

func (g Graph) MarshalJSON() ([]byte, error) {
	type plain Graph
	out := plain(g)
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	if out.Connections == nil {
		out.Connections = []Relationship{}
	}
	return json.Marshal(out)
}
