package badgerdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	badgerdb "github.com/RobotechyShop/orderd/internal/infrastructure/db/badger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestProcessedRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("mark_order_is_first_exactly_once", func(t *testing.T) {
		repo, err := badgerdb.NewProcessedRepository("", nil)
		require.NoError(t, err)
		defer repo.Close()

		orderID := uuid.NewString()

		first, err := repo.MarkOrder(ctx, orderID)
		require.NoError(t, err)
		require.True(t, first)

		for i := 0; i < 3; i++ {
			first, err := repo.MarkOrder(ctx, orderID)
			require.NoError(t, err)
			require.False(t, first)
		}
	})

	t.Run("orders_and_receipts_do_not_collide", func(t *testing.T) {
		repo, err := badgerdb.NewProcessedRepository("", nil)
		require.NoError(t, err)
		defer repo.Close()

		id := uuid.NewString()

		first, err := repo.MarkOrder(ctx, id)
		require.NoError(t, err)
		require.True(t, first)

		first, err = repo.MarkReceipt(ctx, id)
		require.NoError(t, err)
		require.True(t, first)
	})

	t.Run("concurrent_marks_yield_one_winner", func(t *testing.T) {
		repo, err := badgerdb.NewProcessedRepository("", nil)
		require.NoError(t, err)
		defer repo.Close()

		orderID := uuid.NewString()
		winners := make(chan bool, 16)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				first, err := repo.MarkOrder(ctx, orderID)
				require.NoError(t, err)
				winners <- first
			}()
		}
		wg.Wait()
		close(winners)

		count := 0
		for first := range winners {
			if first {
				count++
			}
		}
		require.Equal(t, 1, count)
	})

	t.Run("persistent_store_survives_reopen_after_close", func(t *testing.T) {
		dir := t.TempDir()
		orderID := uuid.NewString()

		repo, err := badgerdb.NewProcessedRepository(dir, nil)
		require.NoError(t, err)

		first, err := repo.MarkOrder(ctx, orderID)
		require.NoError(t, err)
		require.True(t, first)

		// Close stops the value-log GC goroutine and releases the dir lock,
		// otherwise the reopen below fails.
		repo.Close()

		repo, err = badgerdb.NewProcessedRepository(dir, nil)
		require.NoError(t, err)
		defer repo.Close()

		first, err = repo.MarkOrder(ctx, orderID)
		require.NoError(t, err)
		require.False(t, first)
	})

	t.Run("evict_drops_old_entries_only", func(t *testing.T) {
		repo, err := badgerdb.NewProcessedRepository("", nil)
		require.NoError(t, err)
		defer repo.Close()

		oldOrder := uuid.NewString()
		first, err := repo.MarkOrder(ctx, oldOrder)
		require.NoError(t, err)
		require.True(t, first)

		cutoff := time.Now().Add(time.Second)

		newOrder := uuid.NewString()
		time.Sleep(1100 * time.Millisecond)
		first, err = repo.MarkOrder(ctx, newOrder)
		require.NoError(t, err)
		require.True(t, first)

		require.NoError(t, repo.Evict(ctx, cutoff))

		// evicted entry is markable again, retained one is not
		first, err = repo.MarkOrder(ctx, oldOrder)
		require.NoError(t, err)
		require.True(t, first)

		first, err = repo.MarkOrder(ctx, newOrder)
		require.NoError(t, err)
		require.False(t, first)
	})
}
