package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceSnapshot is a full copy of one workspace's records, as pulled
// from the replica.
type WorkspaceSnapshot struct {
	Loans    []*Loan    `json:"loans"`
	Cycles   []*Cycle   `json:"cycles"`
	Payments []*Payment `json:"payments"`
}

// SyncReport summarizes one reconciliation run.
type SyncReport struct {
	PulledLoans    int       `json:"pulledLoans"`
	PulledCycles   int       `json:"pulledCycles"`
	PulledPayments int       `json:"pulledPayments"`
	PushedLoans    int       `json:"pushedLoans"`
	PushedCycles   int       `json:"pushedCycles"`
	PushedPayments int       `json:"pushedPayments"`
	CompletedAt    time.Time `json:"completedAt"`
}

// ReplicaStore is the remote side of replica reconciliation. Every method
// may fail without affecting local operations; the sync service logs and
// moves on.
type ReplicaStore interface {
	Snapshot(workspaceID int32) (*WorkspaceSnapshot, error)
	PushLoan(loan *Loan) error
	PushCycle(cycle *Cycle) error
	PushPayment(payment *Payment) error
	DeleteLoan(workspaceID int32, id uuid.UUID) error
}
