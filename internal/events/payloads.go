// Package events defines the domain events emitted over the race
// lifecycle and the NATS JetStream publisher that carries them. Payload
// types are shared between the command layer and the gateway.
package events

import (
	"encoding/json"
	"time"
)

// Event types published on the race subject space.
const (
	TypeRaceOpened        = "RaceOpened"
	TypeRunnerJoined      = "RunnerJoined"
	TypeRunnerLeft        = "RunnerLeft"
	TypeCountdownStarted  = "CountdownStarted"
	TypeRaceStarted       = "RaceStarted"
	TypeRunnerFinished    = "RunnerFinished"
	TypeRunnerForfeited   = "RunnerForfeited"
	TypeRaceFinalized     = "RaceFinalized"
	TypeRaceClosed        = "RaceClosed"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RoomID    string          `json:"room_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RaceOpenedPayload is the payload for a RaceOpened event.
type RaceOpenedPayload struct {
	Name     string `json:"name"`
	OwnerID  string `json:"owner_id"`
	Lockable bool   `json:"lockable"`
}

// RunnerJoinedPayload is the payload for a RunnerJoined event.
type RunnerJoinedPayload struct {
	RunnerID    string   `json:"runner_id"`
	DisplayName string   `json:"display_name"`
	Teammates   []string `json:"teammates,omitempty"`
}

// RunnerLeftPayload is the payload for a RunnerLeft event.
type RunnerLeftPayload struct {
	RunnerID    string `json:"runner_id"`
	DisplayName string `json:"display_name"`
}

// CountdownStartedPayload is the payload for a CountdownStarted event.
type CountdownStartedPayload struct {
	From    int `json:"from"`
	Runners int `json:"runners"`
}

// RaceStartedPayload is the payload for a RaceStarted event.
type RaceStartedPayload struct {
	StartedAt time.Time `json:"started_at"`
	Runners   int       `json:"runners"`
}

// RunnerFinishedPayload is the payload for a RunnerFinished event.
type RunnerFinishedPayload struct {
	RunnerID    string `json:"runner_id"`
	DisplayName string `json:"display_name"`
	Elapsed     string `json:"elapsed"`
}

// RunnerForfeitedPayload is the payload for a RunnerForfeited event.
type RunnerForfeitedPayload struct {
	RunnerID    string `json:"runner_id"`
	DisplayName string `json:"display_name"`
}

// Placement is one row of a finalized ranking.
type Placement struct {
	Place       int    `json:"place"`
	DisplayName string `json:"display_name"`
	Elapsed     string `json:"elapsed,omitempty"`
	Forfeited   bool   `json:"forfeited,omitempty"`
}

// RaceFinalizedPayload is the payload for a RaceFinalized event.
type RaceFinalizedPayload struct {
	Placements []Placement `json:"placements"`
}

// RaceClosedPayload is the payload for a RaceClosed event.
type RaceClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}
