package worldtest

import (
	"colonysim.ai/internal/sim/transfer"
	world "colonysim.ai/internal/sim/world"
)

const home transfer.RoomName = "W1N1"

func at(x, y int) transfer.Position { return transfer.Position{Room: home, X: x, Y: y} }

func colonyConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:                    "worldtest",
		StepRateHz:            20,
		SecondaryPriorities:   transfer.PriorityFlagsActive,
		SecondaryRange:        6,
		LinkMinTransfer:       100,
		LinkLossPermille:      30,
		TerminalMinEnergy:     100,
		TerminalSendLimit:     1000,
		TerminalCooldownSteps: 10,
	}
}

var colonyStructures = []string{"c1", "spawn", "ext1", "ext2", "storage"}
var colonyHaulers = []string{"h1", "h2"}

func colonyLayout(produce int) world.Layout {
	return world.Layout{
		Structures: []world.Structure{
			{ID: "c1", Kind: transfer.KindContainer, Role: world.RoleHarvest, Pos: at(10, 10), Capacity: 2000,
				Store: map[transfer.Resource]int{transfer.ResourceEnergy: 1800}, Produce: produce},
			{ID: "spawn", Kind: transfer.KindSpawn, Pos: at(15, 15), Capacity: 300},
			{ID: "ext1", Kind: transfer.KindExtension, Pos: at(16, 15), Capacity: 50},
			{ID: "ext2", Kind: transfer.KindExtension, Pos: at(17, 15), Capacity: 50},
			{ID: "storage", Kind: transfer.KindStorage, Pos: at(20, 20), Capacity: 100000},
		},
		Haulers: []world.HaulerSpec{
			{ID: "h1", Pos: at(10, 11), Capacity: 200},
			{ID: "h2", Pos: at(11, 11), Capacity: 200},
		},
	}
}
