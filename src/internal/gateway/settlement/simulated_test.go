package settlement

import (
	"context"
	"regexp"
	"testing"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/log"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(reject func(model.SettlementRequest) string) (*SimulatedGateway, chan model.SettlementOutcome) {
	g := NewSimulatedGateway(Config{
		MobileMoneyDelay: 10 * time.Millisecond,
		CardDelay:        5 * time.Millisecond,
		Reject:           reject,
	}, log.New("test", "ERROR"))
	outcomes := make(chan model.SettlementOutcome, 4)
	g.OnOutcome(func(o model.SettlementOutcome) { outcomes <- o })
	return g, outcomes
}

func waitOutcome(t *testing.T, ch chan model.SettlementOutcome) model.SettlementOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(time.Second):
		t.Fatal("no settlement outcome")
		return model.SettlementOutcome{}
	}
}

func TestSimulatedGateway_MobileMoneyCompletes(t *testing.T) {
	g, outcomes := newTestGateway(nil)

	receipt, err := g.Submit(context.Background(), model.SettlementRequest{
		TransactionID: "tx-mm",
		Method:        entity.MethodMobileMoney,
		Amount:        decimal.NewFromInt(800),
		Provider:      "mpesa",
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-mm", receipt.TransactionID)

	o := waitOutcome(t, outcomes)
	assert.True(t, o.Success)
	assert.Equal(t, entity.MethodMobileMoney, o.Method)
	assert.Regexp(t, regexp.MustCompile(`^MM\d+$`), o.Reference)
	assert.Zero(t, g.Pending())
}

func TestSimulatedGateway_CardAuthorizationCode(t *testing.T) {
	g, outcomes := newTestGateway(nil)

	_, err := g.Submit(context.Background(), model.SettlementRequest{
		TransactionID: "tx-card",
		Method:        entity.MethodCard,
		Amount:        decimal.NewFromInt(1200),
	})
	require.NoError(t, err)

	o := waitOutcome(t, outcomes)
	assert.True(t, o.Success)
	assert.Regexp(t, regexp.MustCompile(`^AUTH\d{6}$`), o.AuthorizationCode)
}

func TestSimulatedGateway_Rejects(t *testing.T) {
	g, outcomes := newTestGateway(func(model.SettlementRequest) string { return "Card declined" })

	_, err := g.Submit(context.Background(), model.SettlementRequest{
		TransactionID: "tx-declined",
		Method:        entity.MethodCard,
		Amount:        decimal.NewFromInt(1200),
	})
	require.NoError(t, err)

	o := waitOutcome(t, outcomes)
	assert.False(t, o.Success)
	assert.Equal(t, "Card declined", o.Error)
	assert.Empty(t, o.AuthorizationCode)
}

func TestSimulatedGateway_SubmitValidation(t *testing.T) {
	g, _ := newTestGateway(nil)
	ctx := context.Background()

	_, err := g.Submit(ctx, model.SettlementRequest{TransactionID: "a", Method: entity.MethodCash, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, model.ErrUnsupportedMethod)

	_, err = g.Submit(ctx, model.SettlementRequest{TransactionID: "b", Method: entity.MethodMobileMoney, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	_, err = g.Submit(ctx, model.SettlementRequest{TransactionID: "c", Method: entity.MethodCard, Amount: decimal.Zero})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	req := model.SettlementRequest{TransactionID: "d", Method: entity.MethodCard, Amount: decimal.NewFromInt(5)}
	_, err = g.Submit(ctx, req)
	require.NoError(t, err)
	_, err = g.Submit(ctx, req)
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)
	g.Close()
}

func TestSimulatedGateway_CloseDropsInflight(t *testing.T) {
	g, outcomes := newTestGateway(nil)

	_, err := g.Submit(context.Background(), model.SettlementRequest{
		TransactionID: "tx-late",
		Method:        entity.MethodMobileMoney,
		Amount:        decimal.NewFromInt(100),
		Provider:      "airtel",
	})
	require.NoError(t, err)
	g.Close()
	assert.Zero(t, g.Pending())

	select {
	case o := <-outcomes:
		t.Fatalf("unexpected outcome %+v", o)
	case <-time.After(50 * time.Millisecond):
	}

	_, err = g.Submit(context.Background(), model.SettlementRequest{TransactionID: "tx-after", Method: entity.MethodCard, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, model.ErrNetworkUnavailable)
}
