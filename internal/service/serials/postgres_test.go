package serials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodline-labs/prodline-go/internal/domain"
	"github.com/prodline-labs/prodline-go/internal/platform/postgres"
	"github.com/prodline-labs/prodline-go/internal/repo"
	repopg "github.com/prodline-labs/prodline-go/internal/repo/postgres"
)

const testDatabaseEnv = "PRODLINE_TEST_DATABASE_URL"

// openTestSchema returns a pool whose search_path points at a fresh schema
// that is dropped when the test ends.
func openTestSchema(t *testing.T) *sql.DB {
	t.Helper()
	base := os.Getenv(testDatabaseEnv)
	if base == "" {
		t.Skipf("set %s to run against postgres", testDatabaseEnv)
	}
	ctx := context.Background()
	schema := fmt.Sprintf("prodline_test_%d", time.Now().UnixNano())

	admin, err := postgres.Open(ctx, postgres.Config{URL: base, PingTimeout: 5 * time.Second, MaxOpenConns: 2, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE") })

	u, err := url.Parse(base)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	db, err := postgres.Open(ctx, postgres.Config{URL: u.String(), PingTimeout: 5 * time.Second, MaxOpenConns: 16, MaxIdleConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repopg.EnsureSchema(ctx, db))
	tx := repopg.NewTransactor(db)
	require.NoError(t, tx.InTx(ctx, repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		for _, l := range domain.DefaultLines() {
			if err := st.UpsertLine(ctx, l); err != nil {
				return err
			}
		}
		for _, s := range domain.DefaultStages() {
			if err := st.UpsertStage(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, repopg.NewStore(db).SyncSequences(ctx))
	return db
}

func TestAssociate_PostgresConcurrentCallsNeverShareProduct(t *testing.T) {
	db := openTestSchema(t)
	ctx := context.Background()
	tx := repopg.NewTransactor(db)

	var ids []int64
	require.NoError(t, tx.InTx(ctx, repo.TxOptions{}, func(ctx context.Context, st repo.Store) error {
		for i := 0; i < 3; i++ {
			p, err := st.CreateProduct(ctx, 2, base)
			if err != nil {
				return err
			}
			if _, err := st.CompleteProduct(ctx, p.ID, base.Add(time.Duration(i)*time.Minute)); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		return nil
	}))

	svc := newService(t, tx, nil)
	const callers = 8
	var (
		wg      sync.WaitGroup
		claimed = make([]int64, callers)
		results = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.Associate(ctx, fmt.Sprintf("SN-PG-%d", i), 2)
			claimed[i], results[i] = p.ID, err
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for i, err := range results {
		switch {
		case err == nil:
			assert.False(t, seen[claimed[i]], "product %d claimed twice", claimed[i])
			seen[claimed[i]] = true
		case errors.Is(err, domain.ErrNoCompletedProductPending):
		default:
			t.Fatalf("caller %d: unexpected error: %v", i, err)
		}
	}
	require.NotEmpty(t, seen)

	labelled := 0
	require.NoError(t, tx.InTx(ctx, repo.TxOptions{ReadOnly: true}, func(ctx context.Context, st repo.Store) error {
		for _, id := range ids {
			p, err := st.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			if p.Serial != nil {
				labelled++
				assert.True(t, seen[id], "product %d labelled without a successful call", id)
			}
		}
		return nil
	}))
	assert.Equal(t, len(seen), labelled)
}
