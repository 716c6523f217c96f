package models

import (
	"context"
	"time"
)

type EventKind string

const (
	EventVaultTriggered   EventKind = "vault_triggered"
	EventTriggerCancelled EventKind = "trigger_cancelled"
	EventVaultCancelled   EventKind = "vault_cancelled"
	EventVaultDistributed EventKind = "vault_distributed"
)

// Event describes a committed lifecycle transition.
type Event struct {
	Kind       EventKind
	VaultID    string
	OwnerID    string
	OccurredAt time.Time
	Detail     string
}

// EventPublisher receives events only after the transition has been committed.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
