package jobs

import (
	"context"
	"fmt"
	"log"
)

// SnapshotSource is the in-memory index kept warm by the refresher.
type SnapshotSource interface {
	Refresh(ctx context.Context) error
	Size() int
}

// SnapshotRefresher reloads the retrieval snapshot from the database on
// every worker tick. A failed refresh leaves the previous snapshot serving.
type SnapshotRefresher struct {
	store SnapshotSource
}

func NewSnapshotRefresher(store SnapshotSource) *SnapshotRefresher {
	return &SnapshotRefresher{store: store}
}

// ProcessJobs implements JobProcessor.
func (r *SnapshotRefresher) ProcessJobs(ctx context.Context) error {
	if err := r.store.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh knowledge snapshot: %w", err)
	}
	log.Printf("Knowledge snapshot refreshed: %d chunks", r.store.Size())
	return nil
}
