package notify

import (
	"context"
	"time"

	"github.com/concordhq/concord/internal/alignment/storage"
	"github.com/concordhq/concord/internal/platform/timeouts"
)

// syncBatchLimit caps one store read inside the sync loop.
const syncBatchLimit = 200

// StartSyncWorker bridges store rows into the hub so pushes survive
// events written by other processes. The worker starts at the store's
// current tail and never replays history. It returns a stop function
// and a channel closed once the loop has exited; both are nil when
// the store or hub is missing.
func StartSyncWorker(events storage.EventStore, hub *Hub, interval time.Duration) (context.CancelFunc, chan struct{}) {
	if events == nil || hub == nil {
		return nil, nil
	}
	if interval <= 0 {
		interval = timeouts.EventSync
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runSyncLoop(ctx, events, hub, interval)
	}()
	return cancel, done
}

func runSyncLoop(ctx context.Context, events storage.EventStore, hub *Hub, interval time.Duration) {
	cursor, err := events.LatestEventSeq(ctx)
	if err != nil {
		cursor = 0
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cursor = drainEvents(ctx, events, hub, cursor)
	}
}

// drainEvents publishes every row past the cursor and returns the new
// cursor. Read errors leave the cursor unchanged for the next tick.
func drainEvents(ctx context.Context, events storage.EventStore, hub *Hub, cursor int64) int64 {
	for {
		if ctx.Err() != nil {
			return cursor
		}
		batch, err := events.ListEventsAfter(ctx, cursor, syncBatchLimit)
		if err != nil || len(batch) == 0 {
			return cursor
		}
		for _, record := range batch {
			hub.Publish(PayloadFromRecord(record))
			if record.Seq > cursor {
				cursor = record.Seq
			}
		}
		if len(batch) < syncBatchLimit {
			return cursor
		}
	}
}
