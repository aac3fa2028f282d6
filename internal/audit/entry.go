// Package audit builds the append-only change-capture entries that
// accompany every correlation mutation. Entries carry field-level diffs
// and full row snapshots so the trail stays interpretable after scorer
// configurations change.
package audit

import (
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Actions, one per mutation event
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionVerified = "verified"
	ActionRejected = "rejected"
	ActionDeleted  = "deleted"
)

// Snapshot is a full row image of a correlation's tracked fields,
// keyed by column name.
type Snapshot map[string]interface{}

// Entry is one immutable audit record. Never mutated or deleted once
// written.
type Entry struct {
	AuditID         uuid.UUID `json:"audit_id"`
	CorrelationID   uuid.UUID `json:"correlation_id"`
	Action          string    `json:"action"`
	ChangedFields   []string  `json:"changed_fields"`
	OldValues       Snapshot  `json:"old_values,omitempty"`
	NewValues       Snapshot  `json:"new_values,omitempty"`
	ConfidenceDelta *int      `json:"confidence_delta,omitempty"`
	ActorID         string    `json:"actor_id"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"timestamp"`
}

// ForCreate builds the entry for a newly inserted correlation
func ForCreate(correlationID uuid.UUID, newValues Snapshot, actorID string) Entry {
	return Entry{
		AuditID:       uuid.New(),
		CorrelationID: correlationID,
		Action:        ActionCreated,
		NewValues:     newValues,
		ActorID:       actorID,
		CreatedAt:     time.Now().UTC(),
	}
}

// ForUpdate builds the entry for an in-place mutation. The action is
// inferred from the field transitions: a false-to-true flip of
// verified_by_user is a verification, a true-to-false flip of
// is_active_match is a rejection, anything else is a generic update.
func ForUpdate(correlationID uuid.UUID, oldValues, newValues Snapshot, actorID string) Entry {
	return Entry{
		AuditID:         uuid.New(),
		CorrelationID:   correlationID,
		Action:          inferAction(oldValues, newValues),
		ChangedFields:   ChangedFields(oldValues, newValues),
		OldValues:       oldValues,
		NewValues:       newValues,
		ConfidenceDelta: confidenceDelta(oldValues, newValues),
		ActorID:         actorID,
		CreatedAt:       time.Now().UTC(),
	}
}

// ForDelete builds the entry for a hard delete, preserving the pre-delete
// snapshot
func ForDelete(correlationID uuid.UUID, oldValues Snapshot, actorID string) Entry {
	return Entry{
		AuditID:       uuid.New(),
		CorrelationID: correlationID,
		Action:        ActionDeleted,
		OldValues:     oldValues,
		ActorID:       actorID,
		CreatedAt:     time.Now().UTC(),
	}
}

// ChangedFields returns the names of fields whose values truly differ
// between the two snapshots. Re-writing an unchanged value is not a
// change.
func ChangedFields(oldValues, newValues Snapshot) []string {
	keys := make(map[string]bool, len(oldValues)+len(newValues))
	for k := range oldValues {
		keys[k] = true
	}
	for k := range newValues {
		keys[k] = true
	}

	var changed []string
	for k := range keys {
		if !reflect.DeepEqual(oldValues[k], newValues[k]) {
			changed = append(changed, k)
		}
	}

	sort.Strings(changed)
	return changed
}

func inferAction(oldValues, newValues Snapshot) string {
	if flipped(oldValues, newValues, "verified_by_user", false, true) {
		return ActionVerified
	}
	if flipped(oldValues, newValues, "is_active_match", true, false) {
		return ActionRejected
	}
	return ActionUpdated
}

func flipped(oldValues, newValues Snapshot, field string, from, to bool) bool {
	oldVal, okOld := oldValues[field].(bool)
	newVal, okNew := newValues[field].(bool)
	return okOld && okNew && oldVal == from && newVal == to
}

// confidenceDelta returns new minus old when both snapshots carry a
// confidence score, nil otherwise
func confidenceDelta(oldValues, newValues Snapshot) *int {
	oldScore, okOld := oldValues["confidence_score"].(int)
	newScore, okNew := newValues["confidence_score"].(int)
	if !okOld || !okNew {
		return nil
	}

	delta := newScore - oldScore
	return &delta
}
