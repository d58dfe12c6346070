package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "propreg/pkg/domain-errors"
	"propreg/pkg/platform/sentinel"
)

var createdAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func price(v int64) *int64 { return &v }

func TestCodec(t *testing.T) {
	records := []Record{
		&OnboardingRequest{Name: "alice", Email: "a@example.com", Phone: "555-0100", SSN: "111", CreatedAt: createdAt},
		&User{Name: "alice", SSN: "111", Email: "a@example.com", Phone: "555-0100", CreatedAt: createdAt, Balance: 700},
		&ListingRequest{PropertyID: "P-1", Owner: NewUserRef("alice", "111"), Price: 400, Status: StatusOnSale, CreatedAt: createdAt},
		&Property{PropertyID: "P-1", Owner: NewUserRef("alice", "111"), Price: price(400), Status: StatusOnSale, CreatedAt: createdAt},
	}
	fresh := map[string]func() Record{
		KindOnboardingRequest: func() Record { return &OnboardingRequest{} },
		KindUser:              func() Record { return &User{} },
		KindListingRequest:    func() Record { return &ListingRequest{} },
		KindProperty:          func() Record { return &Property{} },
	}

	for _, rec := range records {
		t.Run(rec.DocType(), func(t *testing.T) {
			data, err := Encode(rec)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"docType":"`+rec.DocType()+`"`)

			out := fresh[rec.DocType()]()
			require.NoError(t, Decode(data, out))
			assert.Equal(t, rec, out)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("rejects a record of another kind", func(t *testing.T) {
		data, err := Encode(&User{Name: "alice", SSN: "111"})
		require.NoError(t, err)
		err = Decode(data, &Property{})
		require.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("ignores unknown fields", func(t *testing.T) {
		var u User
		require.NoError(t, Decode([]byte(`{"docType":"User","name":"bob","ssn":"2","balance":5,"nickname":"b"}`), &u))
		assert.Equal(t, User{Name: "bob", SSN: "2", Balance: 5}, u)
	})

	t.Run("settled property has no price field", func(t *testing.T) {
		data, err := Encode(&Property{PropertyID: "P-1", Owner: NewUserRef("bob", "2"), Status: StatusRegistered, CreatedAt: createdAt})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "price")
	})
}

func TestUserRef(t *testing.T) {
	t.Run("resolves to the user namespace", func(t *testing.T) {
		key, err := NewUserRef("alice", "111").Key()
		require.NoError(t, err)
		assert.Equal(t, "\x00User\x00alice\x00111\x00", key)
	})

	t.Run("refuses to resolve a foreign kind", func(t *testing.T) {
		_, err := UserRef{Kind: KindProperty, Name: "P-1"}.Key()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("property and user ids never share a key", func(t *testing.T) {
		pk, _ := PropertyKey("alice")
		uk, _ := NewUserRef("alice", "").Key()
		assert.NotEqual(t, pk, uk)
	})

	t.Run("validate rejects control characters", func(t *testing.T) {
		err := NewUserRef("ali\x01ce", "111").Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		err = NewUserRef("alice", "").Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func TestBalance(t *testing.T) {
	u := &User{Balance: 100}

	require.NoError(t, u.Credit(500))
	assert.Equal(t, int64(600), u.Balance)

	err := u.Debit(601)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	assert.Equal(t, int64(600), u.Balance)

	require.NoError(t, u.Debit(600))
	assert.Zero(t, u.Balance)

	assert.True(t, dErrors.HasCode(u.Credit(0), dErrors.CodeInvalidArgument))

	rich := &User{Balance: math.MaxInt64 - 1}
	assert.Error(t, rich.Credit(2))
}

func TestStatus(t *testing.T) {
	s, err := ParsePropertyStatus("onSale")
	require.NoError(t, err)
	assert.Equal(t, StatusOnSale, s)

	_, err = ParsePropertyStatus("forRent")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func TestSettle(t *testing.T) {
	at := createdAt.Add(time.Hour)
	seller := &User{Name: "alice", SSN: "111", Balance: 50}
	onSale := func() *Property {
		return &Property{PropertyID: "P-1", Owner: seller.Ref(), Price: price(400), Status: StatusOnSale, CreatedAt: createdAt}
	}

	t.Run("moves coins and ownership", func(t *testing.T) {
		buyer := &User{Name: "bob", SSN: "222", Balance: 1000}
		s, err := Settle(buyer, seller, onSale(), at)
		require.NoError(t, err)

		assert.Equal(t, int64(600), s.Buyer.Balance)
		assert.Equal(t, int64(450), s.Seller.Balance)
		assert.Equal(t, buyer.Balance+seller.Balance, s.Buyer.Balance+s.Seller.Balance)
		assert.Equal(t, buyer.Ref(), s.Property.Owner)
		assert.Equal(t, StatusRegistered, s.Property.Status)
		assert.Nil(t, s.Property.Price)
		assert.Equal(t, at, s.Property.CreatedAt)

		// inputs untouched
		assert.Equal(t, int64(1000), buyer.Balance)
		assert.Equal(t, int64(50), seller.Balance)
	})

	t.Run("registered property is not for sale", func(t *testing.T) {
		p := onSale()
		p.Status = StatusRegistered
		_, err := Settle(&User{Name: "bob", SSN: "222", Balance: 1000}, seller, p, at)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := Settle(&User{Name: "bob", SSN: "222", Balance: 100}, seller, onSale(), at)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	t.Run("owner cannot buy own property", func(t *testing.T) {
		self := &User{Name: "alice", SSN: "111", Balance: 1000}
		_, err := Settle(self, self, onSale(), at)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("exact balance empties the buyer", func(t *testing.T) {
		s, err := Settle(&User{Name: "bob", SSN: "222", Balance: 400}, seller, onSale(), at)
		require.NoError(t, err)
		assert.Zero(t, s.Buyer.Balance)
	})

	t.Run("seller overflow yields no settlement", func(t *testing.T) {
		rich := &User{Name: "alice", SSN: "111", Balance: math.MaxInt64}
		s, err := Settle(&User{Name: "bob", SSN: "222", Balance: 1000}, rich, onSale(), at)
		assert.Nil(t, s)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
