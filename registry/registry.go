// Package registry holds the latest known snapshot of every type and
// merges the results of write sessions into it.
//
// # Compare-and-publish
//
// A session starts from the snapshot Fetch returned (its origin) and may
// discover new fields. When it ends, Publish offers the merged snapshot
// with TryPublish(expected=origin). The registry swaps it in only if its
// current revision still equals the origin revision. Otherwise it reports
// the current snapshot, Publish rebuilds current ∪ session fields and tries
// again. Nobody holds a lock across the merge; a loser only redoes its own
// work.
//
// # Invariants
//
//   - A published field is never lost: registries refuse snapshots that do
//     not cover the current one (ErrRegressive).
//   - Revisions of one type grow by one per successful publish, so equal
//     revisions within a registry mean the same snapshot.
//   - Snapshots are immutable and may outlive their registry slot.
package registry

import (
	"context"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/schema"
)

type Registry interface {
	// Fetch returns the current snapshot, or ErrTypeUnknown.
	Fetch(ctx context.Context, typeID int32) (*schema.Snapshot, error)
	// TryPublish replaces the current snapshot of updated.TypeID() with
	// updated if the current revision equals expected's. On a stale
	// expectation it returns ok=false and the current snapshot.
	TryPublish(ctx context.Context, expected, updated *schema.Snapshot) (current *schema.Snapshot, ok bool, err error)
	// Types lists the current snapshots of all known types.
	Types(ctx context.Context) ([]*schema.Snapshot, error)
}

// Update is what a finished write session hands over for publishing.
type Update struct {
	Origin  *schema.Snapshot
	Updated *schema.Snapshot
	Added   schema.Fields
}

func revisionOf(s *schema.Snapshot) int64 {
	if s == nil {
		return 0
	}
	return s.Revision()
}

// checkPublish validates a swap of current for updated, expected being
// the caller's idea of current. stale=true means the swap must not happen.
func checkPublish(current, expected, updated *schema.Snapshot) (stale bool, err error) {
	if expected.TypeID() != updated.TypeID() {
		return false, binmeta_errors.ErrTypeIDCollision
	}
	if revisionOf(current) != expected.Revision() {
		return true, nil
	}
	if updated.Revision() <= revisionOf(current) || !updated.Covers(current) {
		return false, binmeta_errors.ErrRegressive
	}
	return false, nil
}
