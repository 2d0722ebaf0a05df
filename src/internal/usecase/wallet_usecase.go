package usecase

import (
	"context"
	"fmt"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	SourceLocal  = "local"
	SourceServer = "server"

	backgroundEmitTimeout = 5 * time.Second
)

type WalletUseCase struct {
	Log      log.Log
	Validate *validator.Validate
	Ledger   *repository.LedgerRepository
	Queue    *repository.OfflineQueueRepository
	Bus      *eventbus.Bus
	Channel  RealtimeChannel
	Remote   RemoteLedger
	now      func() time.Time
}

func NewWalletUseCase(
	logger log.Log,
	validate *validator.Validate,
	ledger *repository.LedgerRepository,
	queue *repository.OfflineQueueRepository,
	bus *eventbus.Bus,
	channel RealtimeChannel,
	remote RemoteLedger,
) *WalletUseCase {
	return &WalletUseCase{
		Log:      logger,
		Validate: validate,
		Ledger:   ledger,
		Queue:    queue,
		Bus:      bus,
		Channel:  channel,
		Remote:   remote,
		now:      time.Now,
	}
}

// GetBalance returns the local balance immediately. When connected, a fresh
// balance is requested from the server in the background.
func (c *WalletUseCase) GetBalance(ctx context.Context) model.BalanceResponse {
	state := c.Ledger.Snapshot()
	connected := c.Channel.IsConnected()
	if connected {
		go c.requestServerBalance(state.UserID)
	}
	return model.BalanceResponse{
		Balance:     state.Balance,
		Currency:    state.Currency,
		LastUpdated: state.LastUpdated,
		IsOffline:   !connected,
	}
}

func (c *WalletUseCase) requestServerBalance(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundEmitTimeout)
	defer cancel()
	if err := c.Channel.Emit(ctx, model.ChannelRequestWalletBalance, model.BalanceRequestPayload{UserID: userID}); err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("failed to request server balance: %v", err), "GetBalance", userID)
	}
}

func (c *WalletUseCase) UpdateBalance(ctx context.Context, request *model.UpdateBalanceRequest) (entity.Transaction, error) {
	if err := c.Validate.Struct(request); err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("validation error: %v", err), "UpdateBalance", utils.ConvertString(request))
		return entity.Transaction{}, model.WrapError(model.KindInvalidRequest, err, "validation error")
	}
	return c.Apply(ctx, repository.BalanceMutation{
		Amount:        request.Amount,
		Reason:        request.Reason,
		TransactionID: request.TransactionID,
	})
}

// Apply mutates the balance and, for a newly applied transaction, notifies
// subscribers and hands the transaction to the remote ledger or the offline
// queue.
func (c *WalletUseCase) Apply(ctx context.Context, m repository.BalanceMutation) (entity.Transaction, error) {
	tx, applied, err := c.Ledger.UpdateBalance(ctx, m)
	if err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("balance update rejected: %v", err), "Apply", utils.ConvertString(m.Amount))
		return entity.Transaction{}, err
	}
	if !applied {
		c.Log.Info("wallet-usecase", "transaction already applied", "Apply", tx.TransactionID)
		return tx, nil
	}

	c.Bus.Emit(model.WalletUpdated{Balance: tx.BalanceAfter, Transaction: tx, Source: SourceLocal})
	return c.publish(ctx, tx), nil
}

// publish records tx remotely when connected and queues it otherwise. It
// returns the transaction as currently stored.
func (c *WalletUseCase) publish(ctx context.Context, tx entity.Transaction) entity.Transaction {
	userID := c.Ledger.Snapshot().UserID

	if c.Channel.IsConnected() {
		if err := c.Channel.Emit(ctx, model.ChannelWalletUpdate, model.WalletUpdatePayload{
			UserID:      userID,
			Balance:     tx.BalanceAfter,
			Transaction: tx,
		}); err != nil {
			c.Log.Error("wallet-usecase", fmt.Sprintf("failed to emit wallet update: %v", err), "publish", tx.TransactionID)
		}

		err := c.Remote.Record(ctx, userID, tx)
		if err == nil {
			if _, err := c.Ledger.MarkSynced(ctx, tx.TransactionID); err != nil {
				c.Log.Error("wallet-usecase", fmt.Sprintf("failed to mark synced: %v", err), "publish", tx.TransactionID)
			} else {
				tx.Synced = true
				c.Bus.Emit(model.TransactionSynced{TransactionID: tx.TransactionID})
			}
			return tx
		}
		c.Log.Error("wallet-usecase", fmt.Sprintf("remote ledger unavailable, queueing: %v", err), "publish", tx.TransactionID)
	}

	return c.enqueue(ctx, tx)
}

func (c *WalletUseCase) enqueue(ctx context.Context, tx entity.Transaction) entity.Transaction {
	now := c.now()
	if _, err := c.Queue.Enqueue(ctx, tx, now); err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("failed to queue offline transaction: %v", err), "enqueue", tx.TransactionID)
		return tx
	}
	if err := c.Ledger.MarkQueued(ctx, tx.TransactionID, now); err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("failed to stamp queued transaction: %v", err), "enqueue", tx.TransactionID)
	} else {
		tx.QueuedAt = &now
	}
	c.Bus.Emit(model.TransactionQueued{Transaction: tx})
	return tx
}

func (c *WalletUseCase) Transactions(ctx context.Context, request *model.TransactionListRequest) (model.TransactionListResponse, error) {
	if err := c.Validate.Struct(request); err != nil {
		return model.TransactionListResponse{}, model.WrapError(model.KindInvalidRequest, err, "validation error")
	}
	limit := request.Limit
	if limit == 0 {
		limit = repository.DefaultTransactionLimit
	}
	txs, total := c.Ledger.Transactions(limit, request.Offset)
	return model.TransactionListResponse{
		Transactions: txs,
		Total:        total,
		Limit:        limit,
		Offset:       request.Offset,
	}, nil
}

func (c *WalletUseCase) Transaction(ctx context.Context, id string) (entity.Transaction, error) {
	return c.Ledger.Transaction(id)
}

// ApplyServerBalance adopts the balance pushed by the server.
func (c *WalletUseCase) ApplyServerBalance(ctx context.Context, balance decimal.Decimal) error {
	changed, err := c.Ledger.SetAuthoritativeBalance(ctx, balance)
	if err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("failed to apply server balance: %v", err), "ApplyServerBalance", balance.String())
		return err
	}
	if changed {
		c.Bus.Emit(model.WalletUpdated{Balance: balance, Source: SourceServer})
	}
	return nil
}

// MergeServerTransaction adds a transaction pushed by the server to the
// history without touching the balance.
func (c *WalletUseCase) MergeServerTransaction(ctx context.Context, tx entity.Transaction) error {
	inserted, err := c.Ledger.MergeRemote(ctx, tx)
	if err != nil {
		c.Log.Error("wallet-usecase", fmt.Sprintf("failed to merge server transaction: %v", err), "MergeServerTransaction", tx.TransactionID)
		return err
	}
	if inserted {
		tx.Synced = true
		c.Bus.Emit(model.WalletUpdated{Balance: c.Ledger.Balance(), Transaction: tx, Source: SourceServer})
	}
	return nil
}
