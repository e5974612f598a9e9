package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeMatchStart
	EventTypeHeadingChange
	EventTypeCrash
	EventTypeShieldSave
	EventTypeShieldSpawn
	EventTypeSpawnStarved
	EventTypeShieldPickup
	EventTypeShieldExpire
	EventTypeMatchEnd
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is one entry of the match event log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano, wall clock
	Sequence  uint64          `json:"sequence"`  // Monotonic per log
	MatchID   string          `json:"matchId"`
	TickNum   uint64          `json:"tickNum"`
	CycleID   int             `json:"cycleId"` // -1 for match-wide events
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeHeadingChange:
		return "heading_change"
	case EventTypeCrash:
		return "crash"
	case EventTypeShieldSave:
		return "shield_save"
	case EventTypeShieldSpawn:
		return "shield_spawn"
	case EventTypeSpawnStarved:
		return "spawn_starved"
	case EventTypeShieldPickup:
		return "shield_pickup"
	case EventTypeShieldExpire:
		return "shield_expire"
	case EventTypeMatchEnd:
		return "match_end"
	default:
		return "unknown"
	}
}

// MarshalText writes the type by name so the JSONL log is greppable.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// MatchStartPayload records everything needed to replay a match.
type MatchStartPayload struct {
	Mode    string   `json:"mode"`
	Seed    int64    `json:"seed"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Speed   float64  `json:"speed"`
	Players []string `json:"players"`
}

// PickupPayload locates a shield pickup.
type PickupPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShieldPayload describes a granted shield.
type ShieldPayload struct {
	ExpiresAtNs int64 `json:"expiresAtNs"`
}

// MatchEndPayload is the final result.
type MatchEndPayload struct {
	WinnerID int    `json:"winnerId"`
	Winner   string `json:"winner,omitempty"`
	Tie      bool   `json:"tie"`
	Ticks    uint64 `json:"ticks"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, matchID string, tickNum uint64, cycleID int, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		MatchID:   matchID,
		TickNum:   tickNum,
		CycleID:   cycleID,
		Payload:   EncodePayload(payload),
	}
}
