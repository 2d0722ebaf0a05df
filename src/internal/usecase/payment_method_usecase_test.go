package usecase

import (
	"context"
	"testing"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInCatalog(t *testing.T) {
	h := newHarness(t)
	h.init(t, false)
	h.fund(t, "4150")

	methods, err := h.engine.GetPaymentMethods(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(methods))
	for _, m := range methods {
		ids = append(ids, m.ID)
		assert.True(t, m.BuiltIn)
	}
	assert.Equal(t, []string{"cash", "wallet", "mobile_money_mpesa", "mobile_money_airtel", "card"}, ids)
	assert.True(t, methods[0].IsDefault)
	require.NotNil(t, methods[1].Balance)
	assert.Equal(t, "4150", methods[1].Balance.String())
	assert.Equal(t, "Balance: KES 4150.00", methods[1].Description)
}

func TestAddAndRemoveMobileMoney(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)
	added := collect[model.PaymentMethodAdded](h.engine.Bus)
	removed := collect[model.PaymentMethodRemoved](h.engine.Bus)

	method, err := h.engine.AddPaymentMethod(ctx, &model.AddPaymentMethodRequest{
		Type:        "mobile_money",
		Name:        "Personal",
		Provider:    "mpesa",
		PhoneNumber: "+254700000001",
		IsDefault:   true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, method.ID)
	assert.False(t, method.IsVerified)
	assert.True(t, method.Enabled)
	require.Len(t, added(), 1)

	methods, err := h.engine.GetPaymentMethods(ctx)
	require.NoError(t, err)
	assert.False(t, methods[0].IsDefault, "cash gives up the default")
	assert.Equal(t, method.ID, methods[len(methods)-1].ID)

	verified, err := h.engine.UpdatePaymentMethod(ctx, method.ID, &model.UpdatePaymentMethodRequest{Verified: true})
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	require.NoError(t, h.engine.RemovePaymentMethod(ctx, method.ID))
	assert.Len(t, removed(), 1)
	assert.ErrorIs(t, h.engine.RemovePaymentMethod(ctx, method.ID), model.ErrNotFound)
}

func TestAddCardStoresFingerprintOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)

	req := &model.AddPaymentMethodRequest{Type: "card", Name: "Visa", CardNumber: "4111111111111111"}
	card, err := h.engine.AddPaymentMethod(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "1111", card.Last4)
	assert.Len(t, card.Fingerprint, 64)

	raw, err := h.store.Get(ctx, "WALLET:METHODS:user-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "4111111111111111")

	_, err = h.engine.AddPaymentMethod(ctx, req)
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)
}

func TestAddCardNormalizesNumber(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)

	spaced, err := h.engine.AddPaymentMethod(ctx, &model.AddPaymentMethodRequest{Type: "card", Name: "Visa", CardNumber: "4111 1111 1111 1111"})
	require.NoError(t, err)
	assert.Equal(t, "1111", spaced.Last4)

	_, err = h.engine.AddPaymentMethod(ctx, &model.AddPaymentMethodRequest{Type: "card", Name: "Visa again", CardNumber: "4111111111111111"})
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)

	fingerprint, err := h.engine.PaymentMethods.fingerprint("4111111111111111")
	require.NoError(t, err)
	assert.Equal(t, fingerprint, spaced.Fingerprint)
}

func TestAddMethodValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)

	cases := map[string]*model.AddPaymentMethodRequest{
		"unknown type":       {Type: "cheque", Name: "x"},
		"missing name":       {Type: "card", CardNumber: "4111111111111111"},
		"bad card number":    {Type: "card", Name: "x", CardNumber: "1234"},
		"missing card":       {Type: "card", Name: "x"},
		"missing provider":   {Type: "mobile_money", Name: "x", PhoneNumber: "+254700000001"},
		"bad phone number":   {Type: "mobile_money", Name: "x", Provider: "mpesa", PhoneNumber: "0700"},
		"wallet not addable": {Type: "wallet", Name: "x"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.engine.AddPaymentMethod(ctx, req)
			assert.ErrorIs(t, err, model.ErrInvalidRequest)
		})
	}
}

func TestBuiltInMethodsAreProtected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)

	assert.ErrorIs(t, h.engine.RemovePaymentMethod(ctx, "cash"), model.ErrInvalidRequest)
	disabled := false
	_, err := h.engine.UpdatePaymentMethod(ctx, "wallet", &model.UpdatePaymentMethodRequest{Enabled: &disabled})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	methods, err := h.engine.GetPaymentMethods(ctx)
	require.NoError(t, err)
	for _, m := range methods {
		if m.Type == entity.MethodWallet {
			assert.True(t, m.Enabled)
		}
	}
}

func TestUpdateMethod(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.init(t, false)
	updated := collect[model.PaymentMethodUpdated](h.engine.Bus)

	card, err := h.engine.AddPaymentMethod(ctx, &model.AddPaymentMethodRequest{Type: "card", Name: "Visa", CardNumber: "4111111111111111"})
	require.NoError(t, err)

	disabled := false
	got, err := h.engine.UpdatePaymentMethod(ctx, card.ID, &model.UpdatePaymentMethodRequest{Enabled: &disabled, Verified: true})
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.True(t, got.IsVerified)
	assert.Len(t, updated(), 1)

	_, err = h.engine.UpdatePaymentMethod(ctx, card.ID, &model.UpdatePaymentMethodRequest{})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}
