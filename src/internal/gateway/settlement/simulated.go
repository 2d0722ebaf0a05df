// Package settlement provides settlement gateways for mobile money and card
// payments.
package settlement

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/log"
)

const (
	DefaultMobileMoneyDelay = 3 * time.Second
	DefaultCardDelay        = 2 * time.Second
)

type Config struct {
	MobileMoneyDelay time.Duration
	CardDelay        time.Duration
	// Reject returns a non-empty reason when the request should be declined.
	Reject func(req model.SettlementRequest) string
}

// SimulatedGateway stands in for a live provider. It accepts every valid
// submission and reports the outcome after a per-method delay.
type SimulatedGateway struct {
	cfg Config
	log log.Log

	mu       sync.Mutex
	handlers []func(model.SettlementOutcome)
	inflight map[string]*time.Timer
	closed   bool

	now func() time.Time
}

func NewSimulatedGateway(cfg Config, logger log.Log) *SimulatedGateway {
	if cfg.MobileMoneyDelay <= 0 {
		cfg.MobileMoneyDelay = DefaultMobileMoneyDelay
	}
	if cfg.CardDelay <= 0 {
		cfg.CardDelay = DefaultCardDelay
	}
	return &SimulatedGateway{
		cfg:      cfg,
		log:      logger,
		inflight: make(map[string]*time.Timer),
		now:      time.Now,
	}
}

func (g *SimulatedGateway) OnOutcome(handler func(model.SettlementOutcome)) {
	g.mu.Lock()
	g.handlers = append(g.handlers, handler)
	g.mu.Unlock()
}

func (g *SimulatedGateway) Submit(ctx context.Context, req model.SettlementRequest) (model.SettlementReceipt, error) {
	if err := ctx.Err(); err != nil {
		return model.SettlementReceipt{}, err
	}

	var delay time.Duration
	switch req.Method {
	case entity.MethodMobileMoney:
		if req.Provider == "" {
			return model.SettlementReceipt{}, model.NewError(model.KindInvalidRequest, "mobile money provider is required")
		}
		delay = g.cfg.MobileMoneyDelay
	case entity.MethodCard:
		delay = g.cfg.CardDelay
	default:
		return model.SettlementReceipt{}, model.NewError(model.KindUnsupportedMethod, "gateway does not settle %s", req.Method)
	}
	if !req.Amount.IsPositive() {
		return model.SettlementReceipt{}, model.NewError(model.KindInvalidAmount, "amount must be positive")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return model.SettlementReceipt{}, model.NewError(model.KindNetworkUnavailable, "gateway is closed")
	}
	if _, ok := g.inflight[req.TransactionID]; ok {
		return model.SettlementReceipt{}, model.NewError(model.KindDuplicateRequest, "transaction %s already submitted", req.TransactionID)
	}
	g.inflight[req.TransactionID] = time.AfterFunc(delay, func() { g.resolve(req) })

	g.log.Info("simulated-gateway", "settlement accepted", string(req.Method), req.TransactionID)
	return model.SettlementReceipt{TransactionID: req.TransactionID, AcceptedAt: g.now()}, nil
}

func (g *SimulatedGateway) resolve(req model.SettlementRequest) {
	g.mu.Lock()
	if _, ok := g.inflight[req.TransactionID]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.inflight, req.TransactionID)
	handlers := append([]func(model.SettlementOutcome){}, g.handlers...)
	g.mu.Unlock()

	outcome := model.SettlementOutcome{TransactionID: req.TransactionID, Method: req.Method}
	if reason := g.rejectReason(req); reason != "" {
		outcome.Error = reason
	} else {
		outcome.Success = true
		switch req.Method {
		case entity.MethodMobileMoney:
			outcome.Reference = fmt.Sprintf("MM%d", g.now().UnixMilli())
		case entity.MethodCard:
			outcome.AuthorizationCode = fmt.Sprintf("AUTH%06d", rand.Intn(1_000_000))
		}
	}

	for _, h := range handlers {
		h(outcome)
	}
}

func (g *SimulatedGateway) rejectReason(req model.SettlementRequest) string {
	if g.cfg.Reject == nil {
		return ""
	}
	return g.cfg.Reject(req)
}

// Pending reports how many submissions are still waiting for an outcome.
func (g *SimulatedGateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// Close drops every outstanding settlement without reporting it.
func (g *SimulatedGateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for id, t := range g.inflight {
		t.Stop()
		delete(g.inflight, id)
	}
}
