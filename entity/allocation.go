package entity

import "time"

// Allocation is the internal result of handing out a code.
// Only Code is ever returned to the HTTP caller.
type Allocation struct {
	ID       int
	Code     string
	UsedAt   time.Time
	Attempts int
}

type ResetResult struct {
	Released int
	Attempts int
}

const (
	EventAllocate = "allocate"
	EventReset    = "reset"
)

// AllocationEvent is the audit trail entry; it never carries the code value.
type AllocationEvent struct {
	EventID   string    `json:"event_id" bson:"event_id"`
	Kind      string    `json:"kind" bson:"kind"`
	CodeID    int       `json:"code_id,omitempty" bson:"code_id,omitempty"`
	Released  int       `json:"released,omitempty" bson:"released,omitempty"`
	Attempts  int       `json:"attempts" bson:"attempts"`
	RequestID string    `json:"request_id,omitempty" bson:"request_id,omitempty"`
	User      string    `json:"user,omitempty" bson:"user,omitempty"`
	At        time.Time `json:"at" bson:"at"`
}
