// Package audit captures lifecycle events emitted by the directory
// coordinators. Emission is best effort: a failing sink never changes
// the outcome of the operation that produced the event.
package audit

import "time"

// Action names one lifecycle event.
type Action string

const (
	ActionProfileCreated     Action = "profile.created"
	ActionProfileUpdated     Action = "profile.updated"
	ActionProfileDeleted     Action = "profile.deleted"
	ActionEmailRotated       Action = "email.rotated"
	ActionCompensationRun    Action = "compensation.run"
	ActionCompensationFailed Action = "compensation.failed"
)

// Event is emitted from domain logic. Keep it transport-agnostic so
// sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Role      string    `json:"role,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
