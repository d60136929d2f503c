package serials

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/repo"
	"github.com/prodline-labs/prodline-go/internal/repo/memstore"
)

var base = time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

// completed inserts products on lineID completed at base+offset minutes.
func completed(t *testing.T, store *memstore.Store, lineID int64, offsets ...int) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, store.InTx(context.Background(), repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		for _, off := range offsets {
			p, err := st.CreateProduct(ctx, lineID, base)
			if err != nil {
				return err
			}
			if _, err := st.CompleteProduct(ctx, p.ID, base.Add(time.Duration(off)*time.Minute)); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		return nil
	}))
	return ids
}

func product(t *testing.T, store *memstore.Store, id int64) domain.Product {
	t.Helper()
	var p domain.Product
	require.NoError(t, store.InTx(context.Background(), repo.TxOptions{ReadOnly: true}, func(ctx context.Context, st repo.Store) error {
		var err error
		p, err = st.GetProduct(ctx, id)
		return err
	}))
	return p
}

type outcomes struct {
	mu  sync.Mutex
	got []string
}

func (o *outcomes) SerialAssociated(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, outcome)
}

func TestAssociate_PicksMostRecentlyCompleted(t *testing.T) {
	store := memstore.NewSeeded(domain.DefaultLines(), domain.DefaultStages())
	ids := completed(t, store, 1, 3, 9, 5)
	rec := &outcomes{}
	svc := newService(t, store, rec)

	got, err := svc.Associate(context.Background(), "  SN-0001  ", 1)
	require.NoError(t, err)
	assert.Equal(t, ids[1], got.ID)
	require.NotNil(t, got.Serial)
	assert.Equal(t, "SN-0001", *got.Serial)

	got, err = svc.Associate(context.Background(), "SN-0002", 1)
	require.NoError(t, err)
	assert.Equal(t, ids[2], got.ID)
	assert.Equal(t, []string{"ok", "ok"}, rec.got)
}

func TestAssociate_NothingPending(t *testing.T) {
	store := memstore.NewSeeded(domain.DefaultLines(), domain.DefaultStages())
	completed(t, store, 2, 1)
	svc := newService(t, store, nil)

	_, err := svc.Associate(context.Background(), "SN-1", 1)
	require.ErrorIs(t, err, domain.ErrNoCompletedProductPending)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAssociate_DuplicateSerialLeavesTargetUnset(t *testing.T) {
	store := memstore.NewSeeded(domain.DefaultLines(), domain.DefaultStages())
	ids := completed(t, store, 1, 1, 2)
	svc := newService(t, store, nil)

	first, err := svc.Associate(context.Background(), "SN-DUP", 1)
	require.NoError(t, err)
	assert.Equal(t, ids[1], first.ID)

	_, err = svc.Associate(context.Background(), "SN-DUP", 1)
	require.ErrorIs(t, err, domain.ErrSerialAlreadyInUse)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "O número de série 'SN-DUP' já está em uso.", de.Message)
	assert.Nil(t, product(t, store, ids[0]).Serial)
}

func TestAssociate_Validation(t *testing.T) {
	svc := newService(t, memstore.New(), nil)
	_, err := svc.Associate(context.Background(), "   ", 0)
	require.Error(t, err)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindValidation, de.Kind)
	assert.Contains(t, de.Fields, "numero_serie")
	assert.Contains(t, de.Fields, "linha_id")
}

func TestAssociate_ConcurrentCallsSingleCandidate(t *testing.T) {
	store := memstore.NewSeeded(domain.DefaultLines(), domain.DefaultStages())
	ids := completed(t, store, 3, 1)
	svc := newService(t, store, nil)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i, serial := range []string{"SN-A", "SN-B"} {
		wg.Add(1)
		go func(i int, serial string) {
			defer wg.Done()
			_, results[i] = svc.Associate(context.Background(), serial, 3)
		}(i, serial)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrNoCompletedProductPending):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)
	require.NotNil(t, product(t, store, ids[0]).Serial)
}

func TestNewRequiresTransactor(t *testing.T) {
	svc, err := New(nil, nil, nil)
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func newService(t *testing.T, tx repo.Transactor, rec Recorder) *Service {
	t.Helper()
	svc, err := New(tx, nil, rec)
	require.NoError(t, err)
	return svc
}
