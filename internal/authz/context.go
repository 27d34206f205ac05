package authz

import "context"

type snapshotContextKey struct{}

// ContextWithSnapshot stores the resolved actor snapshot in context so
// handlers and templates evaluate against the same view the gate used.
func ContextWithSnapshot(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, snapshotContextKey{}, snap)
}

// SnapshotFromContext returns the snapshot placed by the gate, or a zero
// (anonymous, deny-all) snapshot.
func SnapshotFromContext(ctx context.Context) Snapshot {
	snap, _ := ctx.Value(snapshotContextKey{}).(Snapshot)
	return snap
}
