//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"propreg/internal/ledger"
	"propreg/internal/ledger/ledgertest"
	"propreg/pkg/testutil/containers"
)

func TestPostgresBackend(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()

	store := New(pc.Pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrate is idempotent")

	suite.Run(t, &ledgertest.BackendSuite{NewBackend: func() ledger.Backend {
		_, err := pc.Pool.Exec(ctx, `TRUNCATE ledger_state`)
		require.NoError(t, err)
		return store
	}})
}
