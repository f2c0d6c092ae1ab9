package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/campus-cafe/internal/db"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrPaymentExists = errors.New("order already has a payment")
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context, filter Filter) ([]Payment, error)
	UpdateStatus(ctx context.Context, p *Payment) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const paymentQuery = `
	SELECT p.id, p.order_id, o.customer_id, p.amount, p.payment_method, p.status, p.transaction_id,
		p.gateway_response, p.created_at, p.completed_at
	FROM payments p
	JOIN orders o ON o.id = p.order_id
`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var gateway []byte
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.CustomerID,
		&p.Amount,
		&p.PaymentMethod,
		&p.Status,
		&p.TransactionID,
		&gateway,
		&p.CreatedAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.GatewayResponse = gateway
	return &p, nil
}

// gatewayParam turns an empty response into SQL NULL.
func gatewayParam(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *postgresRepository) Create(ctx context.Context, p *Payment) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate payment ID: %w", err)
	}
	p.ID = id
	p.CreatedAt = time.Now().UTC()

	_, err = r.db.Exec(ctx, `
		INSERT INTO payments (id, order_id, amount, payment_method, status, transaction_id, gateway_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.Amount, string(p.PaymentMethod), string(p.Status), p.TransactionID,
		gatewayParam(p.GatewayResponse), p.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPaymentExists
		}
		return fmt.Errorf("repository: failed to insert payment: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, paymentQuery+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select payment %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Payment, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, "o.customer_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, "p.status = $"+strconv.Itoa(len(args)))
	}

	query := paymentQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating payments: %w", err)
	}
	return payments, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, p *Payment) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = $1, transaction_id = $2, gateway_response = $3, completed_at = $4
		WHERE id = $5`,
		string(p.Status), p.TransactionID, gatewayParam(p.GatewayResponse), p.CompletedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update payment %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
