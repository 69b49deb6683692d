package world

import (
	"colonysim.ai/internal/sim/transfer"
	"colonysim.ai/internal/sim/tuning"
)

type WorldConfig struct {
	ID         string
	RunID      string
	StepRateHz int

	// Operational parameters. These are included in snapshots for
	// deterministic replay/resume.
	SnapshotEverySteps    int
	SecondaryPriorities   transfer.PriorityFlags
	SecondaryRange        int
	LinkMinTransfer       int
	LinkLossPermille      int
	TerminalMinEnergy     int
	TerminalSendLimit     int
	TerminalCooldownSteps int
}

// ConfigFromTuning maps a validated tuning file onto a world config.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                    id,
		StepRateHz:            t.StepRateHz,
		SnapshotEverySteps:    t.SnapshotEverySteps,
		SecondaryPriorities:   t.SecondaryPriorities(),
		SecondaryRange:        t.Hauler.SecondaryRange,
		LinkMinTransfer:       t.Link.MinTransfer,
		LinkLossPermille:      t.Link.LossPermille,
		TerminalMinEnergy:     t.Terminal.MinEnergy,
		TerminalSendLimit:     t.Terminal.SendLimit,
		TerminalCooldownSteps: t.Terminal.CooldownSteps,
	}
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "colony"
	}
	if c.StepRateHz <= 0 {
		c.StepRateHz = 4
	}
	if c.SecondaryRange < 0 {
		c.SecondaryRange = 0
	}
	if c.LinkLossPermille < 0 || c.LinkLossPermille >= 1000 {
		c.LinkLossPermille = 0
	}
	if c.TerminalSendLimit <= 0 {
		c.TerminalSendLimit = 1000
	}
}
