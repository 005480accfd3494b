package service

import (
	"context"
	"fmt"

	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/repository"
)

// Action is the branch the resolver took for a record.
type Action string

const (
	ActionInsert Action = "insert" // new entity
	ActionLink   Action = "link"   // new record joining an existing entity
	ActionUpdate Action = "update" // existing (source, source_id) rewritten in place
)

// Resolution is the outcome of resolving one record.
type Resolution struct {
	Action      Action
	EntityID    string
	Fingerprint string
	// PreviousEntityID is set when an update moved the record into another
	// entity cluster.
	PreviousEntityID string
	Record           *domain.CanonicalRecord
}

// Reassigned reports whether the record changed entity.
func (r *Resolution) Reassigned() bool {
	return r.PreviousEntityID != "" && r.PreviousEntityID != r.EntityID
}

// EntityResolver assigns canonical records to entities.
type EntityResolver interface {
	Resolve(ctx context.Context, store *repository.Store, fields domain.CanonicalFields, source, sourceID string) (*Resolution, error)
}

// Resolver unifies records by content fingerprint.
type Resolver struct {
	now Clock
}

// NewResolver creates a Resolver; a nil clock uses the wall clock.
func NewResolver(now Clock) *Resolver {
	if now == nil {
		now = utcNow
	}
	return &Resolver{now: now}
}

// Resolve writes fields as the canonical record of (source, sourceID).
// An existing record for the pair is updated in place and adopts the entity of
// an older record with the same fingerprint if one exists; otherwise a record
// matching another row's fingerprint links to that row's entity; otherwise a
// new entity is minted from the fingerprint. Only the resolved row changes
// entity; other rows of its previous cluster keep their id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - store: unit of work to read and write through.
//   - fields: normalized fields.
//   - source: source name.
//   - sourceID: external id within the source.
// Returns:
//   - *Resolution: branch taken and resulting entity.
//   - error: wraps ErrStore on persistence failure.
func (r *Resolver) Resolve(ctx context.Context, store *repository.Store, fields domain.CanonicalFields, source, sourceID string) (*Resolution, error) {
	fp := FingerprintFields(fields)

	candidate, err := store.Canonical.FindEntityCandidate(ctx, fp, source, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: find entity candidate: %v", ErrStore, err)
	}
	existing, err := store.Canonical.FindBySource(ctx, source, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: find source record: %v", ErrStore, err)
	}

	now := r.now()
	res := &Resolution{Fingerprint: fp}
	rec := &domain.CanonicalRecord{
		ContentFingerprint: fp,
		Source:             source,
		SourceID:           sourceID,
		Data:               fields,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	switch {
	case existing != nil:
		res.Action = ActionUpdate
		res.EntityID = existing.EntityID
		if candidate != nil && candidate.ID != existing.ID && candidate.EntityID != existing.EntityID {
			res.EntityID = candidate.EntityID
			res.PreviousEntityID = existing.EntityID
			logger.CtxWarn(ctx, "Reassigning %s/%s from %s to %s (fingerprint shared with %s/%s)",
				source, sourceID, existing.EntityID, candidate.EntityID, candidate.Source, candidate.SourceID)
		}
		rec.CreatedAt = existing.CreatedAt
	case candidate != nil:
		res.Action = ActionLink
		res.EntityID = candidate.EntityID
		logger.CtxInfo(ctx, "Linking %s/%s to %s (matches %s/%s)",
			source, sourceID, candidate.EntityID, candidate.Source, candidate.SourceID)
	default:
		res.Action = ActionInsert
		res.EntityID = EntityIDFor(fp)
	}

	rec.EntityID = res.EntityID
	if err := store.Canonical.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: upsert canonical %s/%s: %v", ErrStore, source, sourceID, err)
	}
	res.Record = rec
	return res, nil
}
