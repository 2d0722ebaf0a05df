package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	keyBalance      = "WALLET:BALANCE:%s"
	keyTransactions = "WALLET:TRANSACTIONS:%s"

	DefaultTransactionLimit = 50
)

// BalanceMutation describes one change of the wallet balance.
type BalanceMutation struct {
	Amount        decimal.Decimal
	Reason        string
	TransactionID string
	PaymentMethod entity.PaymentMethodType
	RideID        string
	PayoutID      string
}

// LedgerRepository owns the wallet balance and the transaction history
// (newest first). Every mutation is checked and applied under one lock and
// persisted before the lock is released; a failed write restores the
// previous in-memory state.
type LedgerRepository struct {
	Store kvstore.Store
	Log   log.Log

	mu           sync.Mutex
	userID       string
	currency     string
	balance      decimal.Decimal
	lastUpdated  time.Time
	transactions []entity.Transaction
	now          func() time.Time
}

func NewLedgerRepository(store kvstore.Store, logger log.Log, currency string) *LedgerRepository {
	return &LedgerRepository{
		Store:    store,
		Log:      logger,
		currency: currency,
		now:      time.Now,
	}
}

// Load reads the persisted state of userID. Absent keys load an empty wallet.
func (r *LedgerRepository) Load(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	balance := decimal.Zero
	raw, err := r.Store.Get(ctx, fmt.Sprintf(keyBalance, userID))
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load balance: %w", err)
	default:
		balance, err = decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse balance %q: %w", raw, err)
		}
	}

	var txs []entity.Transaction
	if _, err := kvstore.GetJSON(ctx, r.Store, fmt.Sprintf(keyTransactions, userID), &txs); err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	r.userID = userID
	r.balance = balance
	r.transactions = txs
	r.lastUpdated = r.now()
	if len(txs) > 0 {
		r.lastUpdated = txs[0].Timestamp
	}
	r.Log.Info("ledger-repository", "ledger loaded", "Load", fmt.Sprintf("user=%s balance=%s transactions=%d", userID, balance, len(txs)))
	return nil
}

func (r *LedgerRepository) Snapshot() entity.WalletState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return entity.WalletState{
		UserID:      r.userID,
		Balance:     r.balance,
		Currency:    r.currency,
		LastUpdated: r.lastUpdated,
	}
}

func (r *LedgerRepository) Balance() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

// UpdateBalance applies m to the wallet. It reports applied=false with the
// stored transaction when m.TransactionID was already completed.
func (r *LedgerRepository) UpdateBalance(ctx context.Context, m BalanceMutation) (entity.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return entity.Transaction{}, false, model.ErrNotInitialized
	}
	if m.Amount.IsZero() {
		return entity.Transaction{}, false, model.NewError(model.KindInvalidAmount, "amount must not be zero")
	}

	if m.TransactionID != "" {
		if i := r.indexOf(m.TransactionID); i >= 0 {
			existing := r.transactions[i]
			if existing.Status == entity.StatusCompleted && existing.AffectsWallet {
				return existing, false, nil
			}
			return entity.Transaction{}, false, model.NewError(model.KindDuplicateRequest,
				"transaction %s already exists with status %s", m.TransactionID, existing.Status)
		}
	} else {
		m.TransactionID = uuid.NewString()
	}

	after := r.balance.Add(m.Amount)
	if after.IsNegative() {
		return entity.Transaction{}, false, model.NewError(model.KindInsufficientFunds,
			"insufficient balance: have %s, need %s", r.balance, m.Amount.Abs())
	}

	now := r.now()
	tx := entity.Transaction{
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		Type:          entity.TypeForAmount(m.Amount),
		BalanceBefore: r.balance,
		BalanceAfter:  after,
		Reason:        m.Reason,
		Status:        entity.StatusCompleted,
		PaymentMethod: m.PaymentMethod,
		RideID:        m.RideID,
		PayoutID:      m.PayoutID,
		AffectsWallet: true,
		Timestamp:     now,
		ConfirmedAt:   &now,
	}
	if err := tx.Validate(); err != nil {
		return entity.Transaction{}, false, model.WrapError(model.KindInvalidRequest, err, "invalid transaction")
	}

	prevBalance, prevTxs, prevUpdated := r.balance, r.transactions, r.lastUpdated
	r.balance = after
	r.transactions = prepend(r.transactions, tx)
	r.lastUpdated = now

	if err := r.persistAll(ctx); err != nil {
		r.balance, r.transactions, r.lastUpdated = prevBalance, prevTxs, prevUpdated
		r.restore(ctx)
		return entity.Transaction{}, false, fmt.Errorf("persist balance update: %w", err)
	}
	return tx, true, nil
}

// Record appends a transaction that does not move the wallet balance, such
// as a cash or gateway payment.
func (r *LedgerRepository) Record(ctx context.Context, tx entity.Transaction) (entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return entity.Transaction{}, model.ErrNotInitialized
	}
	if tx.TransactionID == "" {
		tx.TransactionID = uuid.NewString()
	}
	if r.indexOf(tx.TransactionID) >= 0 {
		return entity.Transaction{}, model.NewError(model.KindDuplicateRequest, "transaction %s already exists", tx.TransactionID)
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = r.now()
	}
	tx.Type = entity.TypeForAmount(tx.Amount)
	tx.AffectsWallet = false
	tx.BalanceBefore = r.balance
	tx.BalanceAfter = r.balance
	if err := tx.Validate(); err != nil {
		return entity.Transaction{}, model.WrapError(model.KindInvalidRequest, err, "invalid transaction")
	}

	prev := r.transactions
	r.transactions = prepend(r.transactions, tx)
	if err := r.persistTransactions(ctx); err != nil {
		r.transactions = prev
		return entity.Transaction{}, fmt.Errorf("persist transaction: %w", err)
	}
	return tx, nil
}

// Transition moves a non-terminal transaction to a terminal status. A
// transaction that is already terminal is returned unchanged with
// changed=false.
func (r *LedgerRepository) Transition(ctx context.Context, id string, status entity.TransactionStatus, reference, errMsg string) (entity.Transaction, bool, error) {
	if !status.Terminal() {
		return entity.Transaction{}, false, model.NewError(model.KindInvalidState, "cannot transition to non-terminal status %s", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entity.Transaction{}, false, model.NewError(model.KindNotFound, "transaction %s not found", id)
	}
	current := r.transactions[i]
	if current.Status.Terminal() {
		return current, false, nil
	}

	now := r.now()
	updated := current
	updated.Status = status
	if reference != "" {
		updated.Reference = reference
	}
	if status == entity.StatusCompleted {
		updated.ConfirmedAt = &now
	} else {
		updated.FailedAt = &now
		updated.Error = errMsg
	}

	if err := r.replaceAt(ctx, i, updated); err != nil {
		return entity.Transaction{}, false, err
	}
	return updated, true, nil
}

// MarkSynced flips the synced flag once.
func (r *LedgerRepository) MarkSynced(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, model.NewError(model.KindNotFound, "transaction %s not found", id)
	}
	if r.transactions[i].Synced {
		return false, nil
	}
	updated := r.transactions[i]
	updated.Synced = true
	if err := r.replaceAt(ctx, i, updated); err != nil {
		return false, err
	}
	return true, nil
}

// MarkQueued stamps the time a transaction entered the offline queue.
func (r *LedgerRepository) MarkQueued(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return model.NewError(model.KindNotFound, "transaction %s not found", id)
	}
	updated := r.transactions[i]
	updated.QueuedAt = &at
	return r.replaceAt(ctx, i, updated)
}

// MergeRemote inserts a transaction pushed by the server. Known transactions
// are only marked synced. The balance is not touched; the server pushes it
// separately.
func (r *LedgerRepository) MergeRemote(ctx context.Context, tx entity.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return false, model.ErrNotInitialized
	}
	if tx.TransactionID == "" {
		return false, model.NewError(model.KindInvalidRequest, "remote transaction without id")
	}
	if i := r.indexOf(tx.TransactionID); i >= 0 {
		if r.transactions[i].Synced {
			return false, nil
		}
		updated := r.transactions[i]
		updated.Synced = true
		return false, r.replaceAt(ctx, i, updated)
	}

	tx.Synced = true
	if tx.Timestamp.IsZero() {
		tx.Timestamp = r.now()
	}
	prev := r.transactions
	merged := prepend(r.transactions, tx)
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Timestamp.After(merged[b].Timestamp)
	})
	r.transactions = merged
	if err := r.persistTransactions(ctx); err != nil {
		r.transactions = prev
		return false, fmt.Errorf("persist remote transaction: %w", err)
	}
	return true, nil
}

// SetAuthoritativeBalance replaces the local balance with the server value.
func (r *LedgerRepository) SetAuthoritativeBalance(ctx context.Context, balance decimal.Decimal) (bool, error) {
	if balance.IsNegative() {
		return false, model.NewError(model.KindInvalidAmount, "server balance %s is negative", balance)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return false, model.ErrNotInitialized
	}
	if r.balance.Equal(balance) {
		return false, nil
	}
	prev, prevUpdated := r.balance, r.lastUpdated
	r.balance = balance
	r.lastUpdated = r.now()
	if err := r.persistBalance(ctx); err != nil {
		r.balance, r.lastUpdated = prev, prevUpdated
		return false, fmt.Errorf("persist server balance: %w", err)
	}
	return true, nil
}

// Transactions returns a page of the history, newest first, and its total size.
func (r *LedgerRepository) Transactions(limit, offset int) ([]entity.Transaction, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.transactions)
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []entity.Transaction{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]entity.Transaction, end-offset)
	copy(page, r.transactions[offset:end])
	return page, total
}

func (r *LedgerRepository) Transaction(id string) (entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entity.Transaction{}, model.NewError(model.KindNotFound, "transaction %s not found", id)
	}
	return r.transactions[i], nil
}

// Unsynced returns the wallet transactions the remote ledger has not
// acknowledged yet, oldest first.
func (r *LedgerRepository) Unsynced() []entity.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		if tx := r.transactions[i]; tx.AffectsWallet && !tx.Synced {
			out = append(out, tx)
		}
	}
	return out
}

// FindActiveByRide returns the newest non-failed transaction for rideID.
func (r *LedgerRepository) FindActiveByRide(rideID string) (entity.Transaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tx := range r.transactions {
		if tx.RideID == rideID && tx.Status != entity.StatusFailed {
			return tx, true
		}
	}
	return entity.Transaction{}, false
}

func (r *LedgerRepository) indexOf(id string) int {
	for i := range r.transactions {
		if r.transactions[i].TransactionID == id {
			return i
		}
	}
	return -1
}

func (r *LedgerRepository) replaceAt(ctx context.Context, i int, tx entity.Transaction) error {
	prev := r.transactions
	next := make([]entity.Transaction, len(prev))
	copy(next, prev)
	next[i] = tx
	r.transactions = next
	if err := r.persistTransactions(ctx); err != nil {
		r.transactions = prev
		return fmt.Errorf("persist transaction %s: %w", tx.TransactionID, err)
	}
	return nil
}

func (r *LedgerRepository) persistAll(ctx context.Context) error {
	if err := r.persistTransactions(ctx); err != nil {
		return err
	}
	return r.persistBalance(ctx)
}

func (r *LedgerRepository) persistBalance(ctx context.Context) error {
	return r.Store.Set(ctx, fmt.Sprintf(keyBalance, r.userID), r.balance.String())
}

func (r *LedgerRepository) persistTransactions(ctx context.Context) error {
	return kvstore.SetJSON(ctx, r.Store, fmt.Sprintf(keyTransactions, r.userID), r.transactions)
}

// restore rewrites the in-memory state after a partially failed write.
func (r *LedgerRepository) restore(ctx context.Context) {
	if err := r.persistAll(ctx); err != nil {
		r.Log.Error("ledger-repository", fmt.Sprintf("failed to restore persisted state: %v", err), "restore", r.userID)
	}
}

func prepend(txs []entity.Transaction, tx entity.Transaction) []entity.Transaction {
	out := make([]entity.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	return append(out, txs...)
}
