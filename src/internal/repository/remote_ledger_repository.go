package repository

import (
	"context"
	"fmt"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/pkg/databases/mysql"

	"github.com/shopspring/decimal"
)

// remoteTimeLayout is fixed width so that timestamps compare correctly as text.
const remoteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const remoteLedgerSchema = `
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		transaction_id VARCHAR(100) NOT NULL PRIMARY KEY,
		user_id        VARCHAR(100) NOT NULL,
		amount         VARCHAR(64)  NOT NULL,
		type           VARCHAR(16)  NOT NULL,
		balance_before VARCHAR(64)  NOT NULL,
		balance_after  VARCHAR(64)  NOT NULL,
		reason         VARCHAR(255) NOT NULL,
		status         VARCHAR(32)  NOT NULL,
		payment_method VARCHAR(32)  NOT NULL,
		ride_id        VARCHAR(100) NOT NULL,
		payout_id      VARCHAR(100) NOT NULL,
		affects_wallet INTEGER      NOT NULL,
		reference      VARCHAR(100) NOT NULL,
		occurred_at    VARCHAR(40)  NOT NULL
	)
`

type remoteTransactionRow struct {
	TransactionID string `db:"transaction_id"`
	UserID        string `db:"user_id"`
	Amount        string `db:"amount"`
	Type          string `db:"type"`
	BalanceBefore string `db:"balance_before"`
	BalanceAfter  string `db:"balance_after"`
	Reason        string `db:"reason"`
	Status        string `db:"status"`
	PaymentMethod string `db:"payment_method"`
	RideID        string `db:"ride_id"`
	PayoutID      string `db:"payout_id"`
	AffectsWallet int    `db:"affects_wallet"`
	Reference     string `db:"reference"`
	OccurredAt    string `db:"occurred_at"`
}

// RemoteLedgerRepository is the authoritative server-side ledger reached over
// SQL. Record is idempotent by transaction id.
type RemoteLedgerRepository struct {
	DB mysql.DBInterface
}

func NewRemoteLedgerRepository(db mysql.DBInterface) *RemoteLedgerRepository {
	return &RemoteLedgerRepository{
		DB: db,
	}
}

func (r *RemoteLedgerRepository) EnsureSchema(ctx context.Context) error {
	db, err := r.DB.GetDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, remoteLedgerSchema); err != nil {
		return fmt.Errorf("create wallet_transactions: %w", err)
	}
	return nil
}

// Record stores tx for userID unless a row with the same transaction id
// already exists.
func (r *RemoteLedgerRepository) Record(ctx context.Context, userID string, tx entity.Transaction) error {
	db, err := r.DB.GetDB()
	if err != nil {
		return err
	}

	dbTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remote ledger tx: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck

	var count int
	if err := dbTx.GetContext(ctx, &count, `SELECT COUNT(1) FROM wallet_transactions WHERE transaction_id = ?`, tx.TransactionID); err != nil {
		return fmt.Errorf("check transaction %s: %w", tx.TransactionID, err)
	}
	if count > 0 {
		return nil
	}

	query := `
		INSERT INTO wallet_transactions (
			transaction_id, user_id, amount, type, balance_before, balance_after,
			reason, status, payment_method, ride_id, payout_id, affects_wallet,
			reference, occurred_at
		) VALUES (
			:transaction_id, :user_id, :amount, :type, :balance_before, :balance_after,
			:reason, :status, :payment_method, :ride_id, :payout_id, :affects_wallet,
			:reference, :occurred_at
		)
	`
	if _, err := dbTx.NamedExecContext(ctx, query, toRemoteRow(userID, tx)); err != nil {
		// A concurrent writer may have inserted the same id first.
		_ = dbTx.Rollback()
		if n, cerr := r.CountByTransactionID(ctx, tx.TransactionID); cerr == nil && n > 0 {
			return nil
		}
		return fmt.Errorf("insert transaction %s: %w", tx.TransactionID, err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction %s: %w", tx.TransactionID, err)
	}
	return nil
}

func (r *RemoteLedgerRepository) CountByTransactionID(ctx context.Context, transactionID string) (int, error) {
	db, err := r.DB.GetDB()
	if err != nil {
		return 0, err
	}
	var count int
	err = db.GetContext(ctx, &count, `SELECT COUNT(1) FROM wallet_transactions WHERE transaction_id = ?`, transactionID)
	return count, err
}

// ListSince returns the transactions of userID that occurred at or after
// since, oldest first.
func (r *RemoteLedgerRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]entity.Transaction, error) {
	db, err := r.DB.GetDB()
	if err != nil {
		return nil, err
	}

	var rows []remoteTransactionRow
	query := `
		SELECT
			transaction_id, user_id, amount, type, balance_before, balance_after,
			reason, status, payment_method, ride_id, payout_id, affects_wallet,
			reference, occurred_at
		FROM wallet_transactions
		WHERE user_id = ? AND occurred_at >= ?
		ORDER BY occurred_at ASC
	`
	if err := db.SelectContext(ctx, &rows, query, userID, since.UTC().Format(remoteTimeLayout)); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]entity.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func toRemoteRow(userID string, tx entity.Transaction) remoteTransactionRow {
	affects := 0
	if tx.AffectsWallet {
		affects = 1
	}
	return remoteTransactionRow{
		TransactionID: tx.TransactionID,
		UserID:        userID,
		Amount:        tx.Amount.String(),
		Type:          string(tx.Type),
		BalanceBefore: tx.BalanceBefore.String(),
		BalanceAfter:  tx.BalanceAfter.String(),
		Reason:        tx.Reason,
		Status:        string(tx.Status),
		PaymentMethod: string(tx.PaymentMethod),
		RideID:        tx.RideID,
		PayoutID:      tx.PayoutID,
		AffectsWallet: affects,
		Reference:     tx.Reference,
		OccurredAt:    tx.Timestamp.UTC().Format(remoteTimeLayout),
	}
}

func (row remoteTransactionRow) toEntity() (entity.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("parse amount of %s: %w", row.TransactionID, err)
	}
	before, err := decimal.NewFromString(row.BalanceBefore)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("parse balance_before of %s: %w", row.TransactionID, err)
	}
	after, err := decimal.NewFromString(row.BalanceAfter)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("parse balance_after of %s: %w", row.TransactionID, err)
	}
	occurred, err := time.Parse(remoteTimeLayout, row.OccurredAt)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("parse occurred_at of %s: %w", row.TransactionID, err)
	}
	return entity.Transaction{
		TransactionID: row.TransactionID,
		Amount:        amount,
		Type:          entity.TransactionType(row.Type),
		BalanceBefore: before,
		BalanceAfter:  after,
		Reason:        row.Reason,
		Status:        entity.TransactionStatus(row.Status),
		PaymentMethod: entity.PaymentMethodType(row.PaymentMethod),
		RideID:        row.RideID,
		PayoutID:      row.PayoutID,
		AffectsWallet: row.AffectsWallet == 1,
		Reference:     row.Reference,
		Synced:        true,
		Timestamp:     occurred,
	}, nil
}
