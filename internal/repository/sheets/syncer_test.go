package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/lineplan/internal/store"
)

func TestSyncerWritesNewestRevision(t *testing.T) {
	repo := NewMemoryRepository()
	tables := NewTables(repo, time.UTC, nil)
	syncer := NewSyncer(tables, time.Second, nil)

	st := store.New(store.DemoState(now), nil)
	st.OnCommit(syncer.Enqueue)

	ctx, cancel := context.WithCancel(context.Background())
	go syncer.Run(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, st.Update(func(tx *store.Tx) error {
			order, err := tx.Order("ORD-2025-002")
			if err != nil {
				return err
			}
			order.Progress += 10
			return nil
		}))
	}

	assert.Eventually(t, func() bool { return syncer.Saved() == 3 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	<-syncer.Done()

	loaded, err := tables.Load(context.Background())
	require.NoError(t, err)
	order, ok := loaded.Order("ORD-2025-002")
	require.True(t, ok)
	assert.Equal(t, 65.0, order.Progress)
}

func TestSyncerIgnoresStaleRevisions(t *testing.T) {
	syncer := NewSyncer(NewTables(NewMemoryRepository(), nil, nil), 0, nil)

	syncer.Enqueue(store.State{Revision: 5})
	syncer.Enqueue(store.State{Revision: 4})

	syncer.flush()
	assert.Equal(t, uint64(5), syncer.Saved())
}

func TestSyncerKeepsSavedRevisionOverLateOlderCommit(t *testing.T) {
	tables := NewTables(NewMemoryRepository(), time.UTC, nil)
	syncer := NewSyncer(tables, time.Second, nil)

	newer := store.DemoState(now)
	newer.Revision = 5
	newer.Orders[0].Progress = 90
	syncer.Enqueue(newer)
	syncer.flush()
	require.Equal(t, uint64(5), syncer.Saved())

	older := store.DemoState(now)
	older.Revision = 4
	syncer.Enqueue(older)
	syncer.flush()

	assert.Equal(t, uint64(5), syncer.Saved())
	loaded, err := tables.Load(context.Background())
	require.NoError(t, err)
	order, ok := loaded.Order("ORD-2025-001")
	require.True(t, ok)
	assert.Equal(t, 90.0, order.Progress)
}
