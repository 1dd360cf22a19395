package page

import (
	"context"

	"places/internal/diagnostics"
	"places/internal/pipeline"
	"places/internal/storage"
)

// Archiver stores snapshots of fresh results. *storage.SnapshotArchive implements it.
type Archiver interface {
	Archive(ctx context.Context, snap storage.Snapshot) error
}

// ReportStep sends the outcome to r. Failed outcomes carry the error detail.
func ReportStep(r diagnostics.Reporter) pipeline.Step[Outcome] {
	return func(ctx context.Context, o *Outcome) error {
		ev := diagnostics.Event{
			Time:      o.At,
			Route:     o.Route,
			State:     o.State.Name(),
			Signature: o.Result.Signature,
			Cached:    o.Result.Cached,
		}
		switch s := o.State.(type) {
		case Failed:
			ev.Error = s.Err.Error()
		case Ready:
			ev.Places = len(s.Places)
		}
		return r.Report(ctx, ev)
	}
}

// ArchiveStep stores Ready results that came from the network. Cached results
// were archived when they were first fetched.
func ArchiveStep(a Archiver) pipeline.Step[Outcome] {
	return func(ctx context.Context, o *Outcome) error {
		ready, ok := o.State.(Ready)
		if !ok || o.Result.Cached {
			return nil
		}
		return a.Archive(ctx, storage.Snapshot{
			Signature: o.Result.Signature,
			FetchedAt: o.At,
			Places:    ready.Places,
		})
	}
}
