// Package schemas embeds the JSON Schemas for scenario files, step logs and
// the observer stream.
package schemas

import _ "embed"

const (
	ScenarioName = "scenario.schema.json"
	StepName     = "step.schema.json"
	ObserverName = "observer.schema.json"
)

//go:embed scenario.schema.json
var Scenario []byte

//go:embed step.schema.json
var Step []byte

//go:embed observer.schema.json
var Observer []byte
