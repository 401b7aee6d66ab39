package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/pin-ledger/src/internal/domain"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) ListByUsername(ctx context.Context, username string) ([]domain.Transaction, error) {
	const query = `
SELECT id, reference, username, type, amount, balance, counterparty, note, created_at
FROM transactions
WHERE username = $1
ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Transaction, 0)
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return records, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var record domain.Transaction
	var recordType string
	var counterparty sql.NullString
	if err := row.Scan(
		&record.ID,
		&record.Reference,
		&record.Username,
		&recordType,
		&record.Amount,
		&record.Balance,
		&counterparty,
		&record.Note,
		&record.CreatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}
	record.Type = domain.TransactionType(recordType)
	record.Counterparty = counterparty.String
	return record, nil
}
