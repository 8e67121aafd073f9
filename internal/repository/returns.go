package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/coletas-service/internal/model"
)

const returnColumns = `id, invoice_number, requester_name, requester_email, reason, status, rejection_reason, requested_at`

func scanReturn(row rowScanner) (*model.ReturnRequest, error) {
	var (
		rr     model.ReturnRequest
		status string
	)
	err := row.Scan(&rr.ID, &rr.InvoiceNumber, &rr.RequesterName, &rr.RequesterEmail,
		&rr.Reason, &status, &rr.RejectionReason, &rr.RequestedAt)
	if err != nil {
		return nil, err
	}
	rr.Status = model.ReturnStatus(status)
	return &rr, nil
}

// CreateReturnRequest регистрирует заявку на возврат и переводит груз в статус EM_DEVOLUCAO
// с записью истории. Всё выполняется в одной транзакции; строка груза блокируется,
// чтобы проверка статуса и его смена не разошлись.
func (r *PostgresRepository) CreateReturnRequest(ctx context.Context, rr *model.ReturnRequest, location string) (*model.Shipment, error) {
	var (
		shipment *model.Shipment
		created  *model.ReturnRequest
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		s, err := scanShipment(tx.QueryRow(ctx,
			`SELECT `+shipmentColumns+` FROM shipments WHERE invoice_number = $1 FOR UPDATE`,
			rr.InvoiceNumber,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrShipmentNotFound
			}
			return fmt.Errorf("lock shipment: %w", err)
		}

		if !s.Status.AllowsReturn() {
			return fmt.Errorf("%w, current status %s", ErrReturnNotAllowed, s.Status)
		}

		created, err = scanReturn(tx.QueryRow(ctx,
			`INSERT INTO return_requests (invoice_number, requester_name, requester_email, reason, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+returnColumns,
			rr.InvoiceNumber, rr.RequesterName, rr.RequesterEmail, rr.Reason, string(model.ReturnPending),
		))
		if err != nil {
			return fmt.Errorf("insert return request: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE shipments SET status = $2 WHERE id = $1`,
			s.ID, string(model.StatusInReturn),
		); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if _, err := insertHistory(ctx, tx, s.ID, model.StatusInReturn, location); err != nil {
			return err
		}

		s.Status = model.StatusInReturn
		shipment = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	*rr = *created
	return shipment, nil
}

// ListReturnRequests возвращает все заявки на возврат, начиная с самых новых.
func (r *PostgresRepository) ListReturnRequests(ctx context.Context) ([]model.ReturnRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+returnColumns+` FROM return_requests ORDER BY requested_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select return requests: %w", err)
	}
	defer rows.Close()

	var res []model.ReturnRequest
	for rows.Next() {
		rr, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan return request: %w", err)
		}
		res = append(res, *rr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// ResolveLatestReturn выставляет решение по последней заявке на возврат для накладной.
// rejectionReason сохраняется как есть, nil очищает причину отказа.
func (r *PostgresRepository) ResolveLatestReturn(ctx context.Context, invoiceNumber string, status model.ReturnStatus, rejectionReason *string) (*model.ReturnRequest, error) {
	rr, err := scanReturn(r.pool.QueryRow(ctx,
		`UPDATE return_requests SET status = $2, rejection_reason = $3
		 WHERE id = (
			SELECT id FROM return_requests
			WHERE invoice_number = $1
			ORDER BY requested_at DESC, id DESC
			LIMIT 1
		 )
		 RETURNING `+returnColumns,
		invoiceNumber, string(status), rejectionReason,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("resolve return request: %w", err)
	}
	return rr, nil
}
