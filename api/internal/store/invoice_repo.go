package store

import (
	"context"
	"database/sql"
)

var ErrNotFound = sql.ErrNoRows

type Invoice struct {
	InvoiceID int64
	UserID    int64
	ProductID string
	Points    int64
	Price     int
	Processed bool
}

type InvoiceRepo struct{ DB *sql.DB }

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{DB: db} }

func (r *InvoiceRepo) Create(ctx context.Context, inv Invoice) error {
	const q = `
insert into invoices (invoice_id, user_id, product_id, points, price, processed, time)
values ($1, $2, $3, $4, $5, false, now())`
	_, err := r.DB.ExecContext(ctx, q, inv.InvoiceID, inv.UserID, inv.ProductID, inv.Points, inv.Price)
	return err
}

func (r *InvoiceRepo) Find(ctx context.Context, invoiceID int64) (*Invoice, error) {
	const q = `
select invoice_id, user_id, coalesce(product_id, ''), points, coalesce(price, 0), processed
from invoices where invoice_id = $1`
	var inv Invoice
	err := r.DB.QueryRowContext(ctx, q, invoiceID).
		Scan(&inv.InvoiceID, &inv.UserID, &inv.ProductID, &inv.Points, &inv.Price, &inv.Processed)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkProcessed flips the processed flag exactly once; a second call for
// the same invoice affects no rows and returns ErrNotFound, which makes
// payment-notification handling idempotent.
func (r *InvoiceRepo) MarkProcessed(ctx context.Context, invoiceID int64) error {
	res, err := r.DB.ExecContext(ctx,
		`update invoices set processed = true where invoice_id = $1 and not processed`, invoiceID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}
