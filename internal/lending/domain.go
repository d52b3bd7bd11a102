package lending

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTransition is returned when a command does not apply to the
	// item's current status.
	ErrInvalidTransition = errors.New("invalid lending transition")
)

// Status is the lending state of one item identity. The zero value is
// StatusAvailable, so an identity with no entry is available.
type Status int

const (
	StatusAvailable Status = iota
	StatusPendingApproval
	StatusApproved
	StatusIssued
	StatusReturned
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusPendingApproval:
		return "pending_approval"
	case StatusApproved:
		return "approved"
	case StatusIssued:
		return "issued"
	case StatusReturned:
		return "returned"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Display derives the state shown to the user.
func (s Status) Display() Display {
	switch s {
	case StatusReturned:
		return DisplayReturned
	case StatusIssued:
		return DisplayReturnable
	case StatusPendingApproval:
		return DisplayPendingApproval
	default:
		return DisplayIssueAvailable
	}
}

// Display is the effective display state of an item.
type Display int

const (
	DisplayIssueAvailable Display = iota
	DisplayPendingApproval
	DisplayReturnable
	DisplayReturned
)

func (d Display) String() string {
	switch d {
	case DisplayIssueAvailable:
		return "issue_available"
	case DisplayPendingApproval:
		return "approval_pending"
	case DisplayReturnable:
		return "issued"
	case DisplayReturned:
		return "returned"
	default:
		return "unknown"
	}
}

func (d Display) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Cause names what triggered a transition.
type Cause string

const (
	CauseIssueRequested  Cause = "issue_requested"
	CauseApprovalGranted Cause = "approval_granted"
	CauseIssued          Cause = "issued"
	CauseReturnRequested Cause = "return_requested"
)

// Change is emitted to subscribers whenever an item's status changes.
type Change struct {
	Item  string    `json:"item"`
	From  Status    `json:"from"`
	To    Status    `json:"to"`
	Cause Cause     `json:"cause"`
	At    time.Time `json:"at"`
}
