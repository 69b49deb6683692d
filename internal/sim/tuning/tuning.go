package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"colonysim.ai/internal/sim/transfer"
)

type Tuning struct {
	StepRateHz         int `yaml:"step_rate_hz"`
	SnapshotEverySteps int `yaml:"snapshot_every_steps"`

	Hauler   Hauler   `yaml:"hauler"`
	Link     Link     `yaml:"link"`
	Terminal Terminal `yaml:"terminal"`
}

type Hauler struct {
	// SecondaryPriorities is parsed with transfer.ParsePriorityFlags.
	SecondaryPriorities string `yaml:"secondary_priorities"`
	SecondaryRange      int    `yaml:"secondary_range"`
}

type Link struct {
	MinTransfer  int `yaml:"min_transfer"`
	LossPermille int `yaml:"loss_permille"`
}

type Terminal struct {
	MinEnergy     int `yaml:"min_energy"`
	SendLimit     int `yaml:"send_limit"`
	CooldownSteps int `yaml:"cooldown_steps"`
}

func Defaults() Tuning {
	return Tuning{
		StepRateHz:         4,
		SnapshotEverySteps: 600,
		Hauler: Hauler{
			SecondaryPriorities: "active",
			SecondaryRange:      6,
		},
		Link: Link{
			MinTransfer:  100,
			LossPermille: 30,
		},
		Terminal: Terminal{
			MinEnergy:     100,
			SendLimit:     1000,
			CooldownSteps: 10,
		},
	}
}

// Load overlays path onto Defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.StepRateHz <= 0 || t.StepRateHz > 100 {
		errs = append(errs, fmt.Errorf("step_rate_hz %d out of range 1..100", t.StepRateHz))
	}
	if t.SnapshotEverySteps < 0 {
		errs = append(errs, fmt.Errorf("snapshot_every_steps must be >= 0"))
	}
	if _, ok := transfer.ParsePriorityFlags(t.Hauler.SecondaryPriorities); !ok {
		errs = append(errs, fmt.Errorf("hauler.secondary_priorities %q: unknown priority", t.Hauler.SecondaryPriorities))
	}
	if t.Hauler.SecondaryRange < 0 {
		errs = append(errs, fmt.Errorf("hauler.secondary_range must be >= 0"))
	}
	if t.Link.LossPermille < 0 || t.Link.LossPermille >= 1000 {
		errs = append(errs, fmt.Errorf("link.loss_permille %d out of range 0..999", t.Link.LossPermille))
	}
	if t.Link.MinTransfer < 0 || t.Terminal.MinEnergy < 0 || t.Terminal.SendLimit < 0 || t.Terminal.CooldownSteps < 0 {
		errs = append(errs, fmt.Errorf("link/terminal limits must be >= 0"))
	}
	return errors.Join(errs...)
}

// SecondaryPriorities returns the parsed hauler tiers; invalid input maps to
// unset.
func (t Tuning) SecondaryPriorities() transfer.PriorityFlags {
	f, _ := transfer.ParsePriorityFlags(t.Hauler.SecondaryPriorities)
	return f
}
