package property

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"propreg/internal/ledger"
	"propreg/internal/ledger/mocks"
	"propreg/internal/registry/models"
	"propreg/internal/registry/records"
	dErrors "propreg/pkg/domain-errors"
)

func (s *PropertyServiceSuite) purchase(id string, buyer models.UserRef) (*models.Property, error) {
	var p *models.Property
	err := s.invoke(func(ctx context.Context, tx ledger.Tx) error {
		var err error
		p, err = s.svc.Purchase(ctx, tx, id, buyer.Name, buyer.SSN)
		return err
	})
	return p, err
}

func (s *PropertyServiceSuite) TestPurchaseSettles() {
	s.seedUser(alice, 250)
	s.seedUser(bob, 1000)
	_, err := s.list("P-1", alice, 400, "onSale")
	s.Require().NoError(err)

	settledAt := listedAt.Add(24 * time.Hour)
	s.now = settledAt
	p, err := s.purchase("P-1", bob)
	s.Require().NoError(err)

	s.Equal(&models.Property{
		PropertyID: "P-1",
		Owner:      bob,
		Status:     models.StatusRegistered,
		CreatedAt:  settledAt,
	}, p)
	s.Equal(int64(600), s.user(bob).Balance)
	s.Equal(int64(650), s.user(alice).Balance)
	s.Equal(int64(1250), s.user(bob).Balance+s.user(alice).Balance)
	s.NotContains(string(s.rawProperty("P-1")), "price")

	s.Run("the new owner can relist it", func() {
		var updated *models.Property
		s.Require().NoError(s.invoke(func(ctx context.Context, tx ledger.Tx) error {
			var err error
			updated, err = s.svc.UpdateListing(ctx, tx, "P-1", "bob", "222", 900, "onSale")
			return err
		}))
		s.Equal(bob, updated.Owner)

		_, err := s.purchase("P-1", alice)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})
}

func (s *PropertyServiceSuite) TestPurchaseRejections() {
	s.seedUser(alice, 0)
	s.seedUser(bob, 100)
	_, err := s.list("P-1", alice, 400, "onSale")
	s.Require().NoError(err)

	snapshot := func() []string {
		out := []string{string(s.rawProperty("P-1"))}
		for _, ref := range []models.UserRef{alice, bob} {
			key, _ := ref.Key()
			v, _ := s.store.Read(s.ctx, key)
			out = append(out, fmt.Sprintf("%s@%d", v.Value, v.Version))
		}
		return out
	}

	s.Run("insufficient funds mutates nothing", func() {
		before := snapshot()
		_, err := s.purchase("P-1", bob)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.Equal(before, snapshot())
	})

	s.Run("missing buyer wins over missing property", func() {
		_, err := s.purchase("P-404", models.NewUserRef("ghost", "999"))
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "buyer")
	})

	s.Run("missing property is NotFound", func() {
		_, err := s.purchase("P-404", bob)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "P-404")
	})

	s.Run("dangling owner reference is NotFound", func() {
		price := int64(1)
		s.Require().NoError(s.invoke(func(ctx context.Context, tx ledger.Tx) error {
			return records.Save(tx, &models.Property{
				PropertyID: "P-orphan",
				Owner:      models.NewUserRef("gone", "000"),
				Price:      &price,
				Status:     models.StatusOnSale,
			})
		}))
		_, err := s.purchase("P-orphan", bob)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "owner")
	})

	s.Run("owner cannot buy own property", func() {
		s.seedUser(alice, 1000)
		_, err := s.purchase("P-1", alice)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(int64(1000), s.user(alice).Balance)
	})
}

func (s *PropertyServiceSuite) TestPurchaseOfRegisteredPropertyIssuesNoWrites() {
	ctrl := gomock.NewController(s.T())
	tx := mocks.NewMockTx(ctrl)

	price := int64(400)
	buyer := &models.User{Name: "bob", SSN: "222", Balance: 1000}
	seller := &models.User{Name: "alice", SSN: "111", Balance: 0}
	property := &models.Property{PropertyID: "P-1", Owner: alice, Price: &price, Status: models.StatusRegistered}

	for _, rec := range []models.Record{buyer, property, seller} {
		key, err := rec.Key()
		s.Require().NoError(err)
		data, err := models.Encode(rec)
		s.Require().NoError(err)
		tx.EXPECT().Get(gomock.Any(), key).Return(data, nil)
	}
	tx.EXPECT().TxTime().Return(listedAt).AnyTimes()
	// no Put or Delete expected

	_, err := s.svc.Purchase(s.ctx, tx, "P-1", "bob", "222")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *PropertyServiceSuite) TestConcurrentPurchasesConserveCoins() {
	const buyers = 8
	s.seedUser(alice, 0)
	for i := 0; i < buyers; i++ {
		s.seedUser(models.NewUserRef(fmt.Sprintf("buyer-%d", i), "b"), 1000)
		_, err := s.list(fmt.Sprintf("P-%d", i), alice, 100, "onSale")
		s.Require().NoError(err)
	}
	contested := "P-0"

	rt := ledger.NewRuntime(s.store, ledger.WithMaxAttempts(1000))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins = map[string]int{}
	)
	for i := 0; i < buyers; i++ {
		for _, id := range []string{fmt.Sprintf("P-%d", i), contested} {
			wg.Add(1)
			go func(buyer models.UserRef, id string) {
				defer wg.Done()
				err := rt.Invoke(s.ctx, "purchase", func(ctx context.Context, tx ledger.Tx) error {
					_, err := s.svc.Purchase(ctx, tx, id, buyer.Name, buyer.SSN)
					return err
				})
				if err == nil {
					mu.Lock()
					wins[id]++
					mu.Unlock()
					return
				}
				s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err.Error())
			}(models.NewUserRef(fmt.Sprintf("buyer-%d", i), "b"), id)
		}
	}
	wg.Wait()

	total := s.user(alice).Balance
	for i := 0; i < buyers; i++ {
		total += s.user(models.NewUserRef(fmt.Sprintf("buyer-%d", i), "b")).Balance
	}
	s.Equal(int64(buyers*1000), total)
	for id, n := range wins {
		s.Equal(1, n, id)
	}
	s.Len(wins, buyers)
	s.Equal(int64(buyers*100), s.user(alice).Balance)
}
