// Package scenario loads colony layouts from YAML files. Files are checked
// against schemas/scenario.schema.json before they are decoded.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"colonysim.ai/internal/sim/transfer"
	world "colonysim.ai/internal/sim/world"
	"colonysim.ai/schemas"
)

var ErrInvalid = errors.New("invalid scenario")

type Scenario struct {
	WorldID string `json:"world_id,omitempty" yaml:"world_id"`
	Rooms   []Room `json:"rooms" yaml:"rooms"`
}

type Room struct {
	Name       string      `json:"name" yaml:"name"`
	Structures []Structure `json:"structures,omitempty" yaml:"structures"`
	Haulers    []Hauler    `json:"haulers,omitempty" yaml:"haulers"`
}

type Structure struct {
	ID       string         `json:"id" yaml:"id"`
	Kind     string         `json:"kind" yaml:"kind"`
	Role     string         `json:"role,omitempty" yaml:"role"`
	X        int            `json:"x" yaml:"x"`
	Y        int            `json:"y" yaml:"y"`
	Capacity int            `json:"capacity,omitempty" yaml:"capacity"`
	Store    map[string]int `json:"store,omitempty" yaml:"store"`
	Want     map[string]int `json:"want,omitempty" yaml:"want"`
	Produce  int            `json:"produce,omitempty" yaml:"produce"`
	Consume  int            `json:"consume,omitempty" yaml:"consume"`
	Broken   bool           `json:"broken,omitempty" yaml:"broken"`
}

type Hauler struct {
	ID       string         `json:"id" yaml:"id"`
	X        int            `json:"x" yaml:"x"`
	Y        int            `json:"y" yaml:"y"`
	Capacity int            `json:"capacity" yaml:"capacity"`
	Cargo    map[string]int `json:"cargo,omitempty" yaml:"cargo"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemas.ScenarioName, bytes.NewReader(schemas.Scenario)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemas.ScenarioName)
	})
	return schema, schemaErr
}

func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	s, err := Parse(raw)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates YAML (or JSON) scenario bytes and decodes them.
func Parse(raw []byte) (Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// The validator wants encoding/json shaped values.
	js, err := json.Marshal(doc)
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var s Scenario
	if err := json.Unmarshal(js, &s); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s, nil
}

func toStore(m map[string]int) map[transfer.Resource]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[transfer.Resource]int, len(m))
	for r, n := range m {
		out[transfer.Resource(r)] = n
	}
	return out
}

// Layout converts the scenario into a world layout. IDs are checked by
// world.New.
func (s Scenario) Layout() (world.Layout, error) {
	var l world.Layout
	for _, room := range s.Rooms {
		name := transfer.RoomName(room.Name)
		if _, _, err := name.Coords(); err != nil {
			return world.Layout{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, st := range room.Structures {
			kind, ok := transfer.ParseTargetKind(st.Kind)
			if !ok {
				return world.Layout{}, fmt.Errorf("%w: structure %q: kind %q", ErrInvalid, st.ID, st.Kind)
			}
			role, ok := world.ParseRole(st.Role)
			if !ok {
				return world.Layout{}, fmt.Errorf("%w: structure %q: role %q", ErrInvalid, st.ID, st.Role)
			}
			l.Structures = append(l.Structures, world.Structure{
				ID:       st.ID,
				Kind:     kind,
				Role:     role,
				Pos:      transfer.Position{Room: name, X: st.X, Y: st.Y},
				Capacity: st.Capacity,
				Store:    toStore(st.Store),
				Want:     toStore(st.Want),
				Produce:  st.Produce,
				Consume:  st.Consume,
				Broken:   st.Broken,
			})
		}
		for _, h := range room.Haulers {
			l.Haulers = append(l.Haulers, world.HaulerSpec{
				ID:       h.ID,
				Pos:      transfer.Position{Room: name, X: h.X, Y: h.Y},
				Capacity: h.Capacity,
				Cargo:    toStore(h.Cargo),
			})
		}
	}
	return l, nil
}

// Config builds a world config from tuning-derived base, taking the world id
// from the scenario when set.
func (s Scenario) Config(base world.WorldConfig) world.WorldConfig {
	if s.WorldID != "" {
		base.ID = s.WorldID
	}
	return base
}
