package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propreg/internal/ledger"
	"propreg/internal/ledger/store/memory"
	"propreg/internal/registry/identity"
	"propreg/internal/registry/models"
	dErrors "propreg/pkg/domain-errors"
	"propreg/pkg/testutil"
)

type capturePublisher struct {
	events []ledger.CommitEvent
}

func (c *capturePublisher) Publish(_ context.Context, e ledger.CommitEvent) error {
	c.events = append(c.events, e)
	return nil
}

func newRegistry(t *testing.T, opts ...ledger.Option) (*Registry, *memory.Store) {
	t.Helper()
	store := memory.New()
	clock := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]ledger.Option{ledger.WithClock(func() time.Time { return clock })}, opts...)
	return New(ledger.NewRuntime(store, opts...)), store
}

func onboard(t *testing.T, ctx context.Context, r *Registry, name, ssn string, vouchers ...string) {
	t.Helper()
	_, err := r.RequestOnboarding(ctx, name, name+"@example.com", "555-0100", ssn)
	require.NoError(t, err)
	_, err = r.ApproveOnboarding(ctx, name, ssn)
	require.NoError(t, err)
	for _, v := range vouchers {
		_, err = r.Recharge(ctx, name, ssn, v)
		require.NoError(t, err)
	}
}

func TestPropertySaleScenario(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	r, _ := newRegistry(t, ledger.WithPublisher(pub))
	r.Instantiate(ctx)

	testutil.Given(t, "a seller with a listed property and a buyer with 1000 coins", func(t *testing.T) {
		onboard(t, ctx, r, "alice", "111")
		onboard(t, ctx, r, "bob", "222", "upg1000")

		_, err := r.RequestListing(ctx, "P-1", "alice", "111", 400, "onSale")
		require.NoError(t, err)
		p, err := r.ApproveListing(ctx, "P-1")
		require.NoError(t, err)
		assert.Equal(t, models.NewUserRef("alice", "111"), p.Owner)
	})

	testutil.When(t, "the buyer purchases the property", func(t *testing.T) {
		p, err := r.Purchase(ctx, "P-1", "bob", "222")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRegistered, p.Status)
	})

	testutil.Then(t, "coins and ownership moved together", func(t *testing.T) {
		bob, err := r.GetUser(ctx, "bob", "222")
		require.NoError(t, err)
		alice, err := r.GetUser(ctx, "alice", "111")
		require.NoError(t, err)
		assert.Equal(t, int64(600), bob.Balance)
		assert.Equal(t, int64(400), alice.Balance)

		p, err := r.GetProperty(ctx, "P-1")
		require.NoError(t, err)
		assert.Equal(t, models.NewUserRef("bob", "222"), p.Owner)
		assert.Nil(t, p.Price)
	})

	testutil.And(t, "the settlement committed as a single write set", func(t *testing.T) {
		var settlement *ledger.CommitEvent
		for i := range pub.events {
			if pub.events[i].Function == FnPurchase {
				settlement = &pub.events[i]
			}
		}
		require.NotNil(t, settlement)
		assert.Len(t, settlement.Mutations, 3)
	})

	testutil.And(t, "a second purchase is refused", func(t *testing.T) {
		_, err := r.Purchase(ctx, "P-1", "alice", "111")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestInsufficientFundsScenario(t *testing.T) {
	ctx := context.Background()
	r, store := newRegistry(t)

	onboard(t, ctx, r, "alice", "111")
	onboard(t, ctx, r, "bob", "222", "upg100")
	_, err := r.RequestListing(ctx, "P-1", "alice", "111", 400, "onSale")
	require.NoError(t, err)
	_, err = r.ApproveListing(ctx, "P-1")
	require.NoError(t, err)

	before := map[string]ledger.Versioned{}
	for _, k := range store.Keys() {
		before[k], _ = store.Read(ctx, k)
	}

	_, err = r.Purchase(ctx, "P-1", "bob", "222")
	require.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

	for _, k := range store.Keys() {
		after, _ := store.Read(ctx, k)
		assert.Equal(t, before[k], after, "key %q changed", k)
	}
}

func TestReadsDoNotCommit(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	r, _ := newRegistry(t, ledger.WithPublisher(pub))

	_, err := r.GetUser(ctx, "nobody", "0")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = r.GetProperty(ctx, "P-0")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Empty(t, pub.events)
}

func TestCustomIdentityService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := New(ledger.NewRuntime(store), WithIdentityService(identity.New(identity.WithVouchers(map[string]int64{"promo": 3}))))

	onboard(t, ctx, r, "alice", "111", "promo")
	u, err := r.GetUser(ctx, "alice", "111")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.Balance)

	_, err = r.Recharge(ctx, "alice", "111", "upg100")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}
