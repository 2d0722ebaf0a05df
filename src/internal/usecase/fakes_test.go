package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/internal/usecase/settlement"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

var errRemoteDown = errors.New("remote ledger unavailable")

type emitted struct {
	Event   string
	Payload any
}

type fakeChannel struct {
	connected atomic.Bool
	mu        sync.Mutex
	sent      []emitted
}

func (c *fakeChannel) IsConnected() bool { return c.connected.Load() }

func (c *fakeChannel) Emit(_ context.Context, event string, payload any) error {
	if !c.connected.Load() {
		return model.ErrNetworkUnavailable
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, emitted{Event: event, Payload: payload})
	return nil
}

func (c *fakeChannel) events(name string) []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emitted
	for _, e := range c.sent {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeRemote struct {
	mu      sync.Mutex
	failing bool
	calls   int
	records map[string]entity.Transaction
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]entity.Transaction)}
}

func (r *fakeRemote) Record(_ context.Context, _ string, tx entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failing {
		return errRemoteDown
	}
	r.records[tx.TransactionID] = tx
	return nil
}

func (r *fakeRemote) setFailing(v bool) {
	r.mu.Lock()
	r.failing = v
	r.mu.Unlock()
}

func (r *fakeRemote) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// deltaRemote also lists what the server recorded since a point in time.
type deltaRemote struct {
	*fakeRemote
	delta []entity.Transaction
	since []time.Time
}

func (r *deltaRemote) ListSince(_ context.Context, _ string, since time.Time) ([]entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.since = append(r.since, since)
	return r.delta, nil
}

// prefixFailingStore fails writes to keys starting with prefix while failing
// is set.
type prefixFailingStore struct {
	*kvstore.MemoryStore
	prefix  string
	failing atomic.Bool
}

func (s *prefixFailingStore) Set(ctx context.Context, key, value string) error {
	if s.failing.Load() && strings.HasPrefix(key, s.prefix) {
		return errors.New("write failed")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fakeGateway struct {
	mu        sync.Mutex
	submitted []model.SettlementRequest
	handler   func(model.SettlementOutcome)
	err       error
}

func (g *fakeGateway) Submit(_ context.Context, req model.SettlementRequest) (model.SettlementReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return model.SettlementReceipt{}, g.err
	}
	g.submitted = append(g.submitted, req)
	return model.SettlementReceipt{TransactionID: req.TransactionID, AcceptedAt: time.Now()}, nil
}

func (g *fakeGateway) OnOutcome(handler func(model.SettlementOutcome)) {
	g.mu.Lock()
	g.handler = handler
	g.mu.Unlock()
}

func (g *fakeGateway) deliver(outcome model.SettlementOutcome) {
	g.mu.Lock()
	h := g.handler
	g.mu.Unlock()
	h(outcome)
}

type scheduled struct {
	UserID   string
	PayoutID string
	At       time.Time
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []scheduled
	err  error
}

func (s *fakeScheduler) ScheduleCompletion(_ context.Context, userID, payoutID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, scheduled{UserID: userID, PayoutID: payoutID, At: at})
	return nil
}

type harness struct {
	engine    *WalletEngine
	store     kvstore.Store
	channel   *fakeChannel
	remote    *fakeRemote
	gateway   *fakeGateway
	scheduler *fakeScheduler
	config    *viper.Viper
}

func testConfig() *viper.Viper {
	v := viper.New()
	v.Set("wallet.currency", "KES")
	v.Set("payout.minimum", "1000")
	v.Set("payout.completion_delay", "24h")
	v.Set("sync.max_attempts", 3)
	v.Set("sync.backoff.initial", "1s")
	v.Set("sync.backoff.max", "4s")
	v.Set("settlement.mobile_money.providers", []string{"mpesa", "airtel"})
	v.Set("card.fingerprint_key", "test-key")
	return v
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, kvstore.NewMemoryStore())
}

func newHarnessWithStore(t *testing.T, store kvstore.Store) *harness {
	t.Helper()
	return newHarnessWith(t, store, nil)
}

// newHarnessWith builds a harness whose remote ledger is wrap(fake) when
// wrap is set.
func newHarnessWith(t *testing.T, store kvstore.Store, wrap func(*fakeRemote) RemoteLedger) *harness {
	t.Helper()
	logger := log.New("usecase-test", "ERROR")
	validate := validator.New()
	cfg := testConfig()
	bus := eventbus.New(logger)

	h := &harness{
		store:     store,
		channel:   &fakeChannel{},
		remote:    newFakeRemote(),
		gateway:   &fakeGateway{},
		scheduler: &fakeScheduler{},
		config:    cfg,
	}

	ledger := repository.NewLedgerRepository(store, logger, cfg.GetString("wallet.currency"))
	queue := repository.NewOfflineQueueRepository(store, logger)
	methods := repository.NewPaymentMethodRepository(store)
	payouts := repository.NewPayoutRepository(store)
	syncState := repository.NewSyncStateRepository(store)

	var remote RemoteLedger = h.remote
	if wrap != nil {
		remote = wrap(h.remote)
	}

	wallet := NewWalletUseCase(logger, validate, ledger, queue, bus, h.channel, remote)
	paymentMethods := NewPaymentMethodUseCase(logger, validate, cfg, methods, ledger, bus)
	payments := NewPaymentUseCase(logger, validate, ledger, paymentMethods, bus, h.channel,
		settlement.NewWalletStrategy(wallet),
		settlement.NewCashStrategy(ledger, bus),
		settlement.NewMobileMoneyStrategy(ledger, h.gateway, logger),
		settlement.NewCardStrategy(ledger, h.gateway, logger),
	)
	payoutUseCase := NewPayoutUseCase(logger, validate, cfg, wallet, ledger, payouts, h.scheduler, bus)
	syncUseCase := NewSyncUseCase(logger, cfg, ledger, queue, syncState, wallet, remote, h.channel, bus)

	h.engine = NewWalletEngine(EngineDeps{
		Log:            logger,
		Bus:            bus,
		Ledger:         ledger,
		Queue:          queue,
		Methods:        methods,
		PayoutStore:    payouts,
		Wallet:         wallet,
		PaymentMethods: paymentMethods,
		Payments:       payments,
		Payouts:        payoutUseCase,
		Sync:           syncUseCase,
		Channel:        h.channel,
		Gateway:        h.gateway,
	})
	t.Cleanup(func() { syncUseCase.Stop() })
	return h
}

func (h *harness) init(t *testing.T, connected bool) {
	t.Helper()
	h.channel.connected.Store(connected)
	require.NoError(t, h.engine.Initialize(context.Background(), "user-1"))
}

// fund credits the wallet directly in the ledger without side effects.
func (h *harness) fund(t *testing.T, amount string) {
	t.Helper()
	_, _, err := h.engine.Ledger.UpdateBalance(context.Background(), repository.BalanceMutation{
		Amount: decimal.RequireFromString(amount),
		Reason: "Top up",
	})
	require.NoError(t, err)
}

// collect subscribes to kind and returns a function reading what arrived.
func collect[T eventbus.Event](bus *eventbus.Bus) func() []T {
	var mu sync.Mutex
	var got []T
	eventbus.Subscribe(bus, func(e T) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	})
	return func() []T {
		mu.Lock()
		defer mu.Unlock()
		out := make([]T, len(got))
		copy(out, got)
		return out
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
