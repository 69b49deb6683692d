package observerproto

import "colonysim.ai/internal/sim/transfer"

// Version is the observer protocol version.
const Version = "1.0"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeStep      = "STEP"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Rooms limits moves and summaries to these rooms. Empty means all rooms.
	Rooms []string `json:"rooms,omitempty"`
	// NoMoves drops per-move detail and keeps summaries only.
	NoMoves bool `json:"no_moves,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	WorldID         string   `json:"world_id"`
	RunID           string   `json:"run_id,omitempty"`
	Step            uint64   `json:"step"`
	StepRateHz      int      `json:"step_rate_hz"`
	Rooms           []string `json:"rooms"`
	Structures      int      `json:"structures"`
	Haulers         int      `json:"haulers"`
}

// Server -> Client. Sent every step.
type StepMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Step            uint64 `json:"step"`
	Digest          string `json:"digest"`

	Moves           []Move                 `json:"moves,omitempty"`
	Summary         []transfer.RoomSummary `json:"summary,omitempty"`
	Backlog         map[string]int         `json:"backlog,omitempty"`
	GeneratorErrors int                    `json:"generator_errors,omitempty"`
}

type Move struct {
	Kind     string `json:"kind"`
	Actor    string `json:"actor"`
	Target   string `json:"target"`
	Room     string `json:"room"`
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}
