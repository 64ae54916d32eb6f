package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const processedStoreDir = "processed"

type processedOrder struct {
	ID   string
	Seen time.Time
}

type processedReceipt struct {
	ID   string
	Seen time.Time
}

type processedRepository struct {
	store  *badgerhold.Store
	lock   *sync.Mutex
	stopGC func()
}

// NewProcessedRepository opens the processed-ids store under baseDir, or an
// in-memory store if baseDir is empty.
func NewProcessedRepository(baseDir string, logger badger.Logger) (domain.ProcessedRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, processedStoreDir)
	}
	store, stopGC, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open processed store: %s", err)
	}
	lock := &sync.Mutex{}
	repo := &processedRepository{store, lock, stopGC}
	return repo, nil
}

func (r *processedRepository) Close() {
	r.stopGC()
	r.store.Close()
}

func (r *processedRepository) MarkOrder(ctx context.Context, orderID string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	err := r.store.Insert(orderID, processedOrder{ID: orderID, Seen: time.Now()})
	if err == badgerhold.ErrKeyExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *processedRepository) MarkReceipt(ctx context.Context, eventID string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	err := r.store.Insert(eventID, processedReceipt{ID: eventID, Seen: time.Now()})
	if err == badgerhold.ErrKeyExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *processedRepository) Evict(ctx context.Context, cutoff time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	query := badgerhold.Where("Seen").Lt(cutoff)
	if err := r.store.DeleteMatching(&processedOrder{}, query); err != nil {
		return err
	}
	return r.store.DeleteMatching(&processedReceipt{}, query)
}
