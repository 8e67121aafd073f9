package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coletas-service/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*model.Shipment, error) {
	var (
		s             model.Shipment
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&s.ID, &s.OrderNumber, &s.ClientName, &s.ClientEmail, &s.PickupAddress, &s.CargoType,
		&s.SenderTaxID, &s.RecipientTaxID, &s.InvoiceNumber, &s.FreightValue, &s.WeightKg, &s.DueDate,
		&status, &paymentStatus, &s.DriverToken, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = model.ShipmentStatus(status)
	s.PaymentStatus = model.PaymentStatus(paymentStatus)
	return &s, nil
}

func collectShipments(rows pgx.Rows) ([]model.Shipment, error) {
	defer rows.Close()

	var res []model.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		res = append(res, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// CreateShipment сохраняет новый груз в статусе PENDENTE вместе с номером заказа,
// токеном водителя и первой записью истории в одной транзакции.
// Заполняет ID, OrderNumber, Status, PaymentStatus, CreatedAt и History у s.
func (r *PostgresRepository) CreateShipment(ctx context.Context, s *model.Shipment, location string) error {
	var (
		id        int64
		createdAt time.Time
		entry     model.HistoryEntry
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT nextval(pg_get_serial_sequence('shipments', 'id'))`,
		).Scan(&id); err != nil {
			return fmt.Errorf("reserve shipment id: %w", err)
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO shipments (id, order_number, client_name, client_email, pickup_address, cargo_type,
				sender_tax_id, recipient_tax_id, invoice_number, freight_value, weight_kg, due_date,
				status, payment_status, driver_token)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			 RETURNING created_at`,
			id, model.FormatOrderNumber(id), s.ClientName, s.ClientEmail, s.PickupAddress, s.CargoType,
			s.SenderTaxID, s.RecipientTaxID, s.InvoiceNumber, s.FreightValue, s.WeightKg, s.DueDate,
			string(model.StatusPending), string(model.PaymentPending), s.DriverToken,
		).Scan(&createdAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrInvoiceExists, s.InvoiceNumber)
			}
			if isRangeViolation(err) {
				return fmt.Errorf("%w: %s", ErrInvalidValue, err)
			}
			return fmt.Errorf("insert shipment: %w", err)
		}

		entry, err = insertHistory(ctx, tx, id, model.StatusPending, location)
		return err
	})
	if err != nil {
		return err
	}

	s.ID = id
	s.OrderNumber = model.FormatOrderNumber(id)
	s.Status = model.StatusPending
	s.PaymentStatus = model.PaymentPending
	s.CreatedAt = createdAt
	s.History = []model.HistoryEntry{entry}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, shipmentID int64, status model.ShipmentStatus, location string) (model.HistoryEntry, error) {
	entry := model.HistoryEntry{
		ShipmentID: shipmentID,
		Status:     status,
		Location:   location,
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO tracking_history (shipment_id, status, location) VALUES ($1, $2, $3) RETURNING id, recorded_at`,
		shipmentID, string(status), location,
	).Scan(&entry.ID, &entry.RecordedAt)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) getShipment(ctx context.Context, where string, arg any) (*model.Shipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE `+where, arg)

	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShipmentNotFound
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

// GetShipmentByID возвращает груз по идентификатору без истории.
func (r *PostgresRepository) GetShipmentByID(ctx context.Context, id int64) (*model.Shipment, error) {
	return r.getShipment(ctx, `id = $1`, id)
}

// GetShipmentByOrderNumber возвращает груз по номеру заказа без истории.
func (r *PostgresRepository) GetShipmentByOrderNumber(ctx context.Context, orderNumber string) (*model.Shipment, error) {
	return r.getShipment(ctx, `order_number = $1`, orderNumber)
}

// GetShipmentByInvoice возвращает груз по номеру накладной без истории.
func (r *PostgresRepository) GetShipmentByInvoice(ctx context.Context, invoiceNumber string) (*model.Shipment, error) {
	return r.getShipment(ctx, `invoice_number = $1`, invoiceNumber)
}

// GetShipmentByOrderOrInvoice ищет груз по номеру заказа, а затем по номеру накладной.
func (r *PostgresRepository) GetShipmentByOrderOrInvoice(ctx context.Context, ref string) (*model.Shipment, error) {
	return r.getShipment(ctx,
		`order_number = $1 OR invoice_number = $1 ORDER BY (order_number = $1) DESC LIMIT 1`, ref)
}

// GetHistory возвращает историю груза, начиная с последней записи.
func (r *PostgresRepository) GetHistory(ctx context.Context, shipmentID int64) ([]model.HistoryEntry, error) {
	byShipment, err := r.historyFor(ctx, []int64{shipmentID})
	if err != nil {
		return nil, err
	}
	return byShipment[shipmentID], nil
}

func (r *PostgresRepository) historyFor(ctx context.Context, ids []int64) (map[int64][]model.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, shipment_id, status, location, recorded_at
		 FROM tracking_history
		 WHERE shipment_id = ANY($1)
		 ORDER BY recorded_at DESC, id DESC`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.HistoryEntry, len(ids))
	for rows.Next() {
		var (
			e      model.HistoryEntry
			status string
		)
		if err := rows.Scan(&e.ID, &e.ShipmentID, &status, &e.Location, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = model.ShipmentStatus(status)
		res[e.ShipmentID] = append(res[e.ShipmentID], e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// AppendStatus меняет статус груза и добавляет запись истории в одной транзакции.
func (r *PostgresRepository) AppendStatus(ctx context.Context, shipmentID int64, status model.ShipmentStatus, location string) (*model.HistoryEntry, error) {
	var entry model.HistoryEntry

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE shipments SET status = $2 WHERE id = $1`,
			shipmentID, string(status),
		)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrShipmentNotFound
		}

		entry, err = insertHistory(ctx, tx, shipmentID, status, location)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListShipments возвращает страницу грузов, начиная с самых новых.
func (r *PostgresRepository) ListShipments(ctx context.Context, f model.ShipmentFilter) (*model.ShipmentPage, error) {
	where, args := shipmentFilterClause(f)
	page, offset := pageOffset(f.Page, model.PageSize)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count shipments: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM shipments%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		shipmentColumns, where, model.PageSize, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select shipments: %w", err)
	}

	shipments, err := collectShipments(rows)
	if err != nil {
		return nil, err
	}

	return &model.ShipmentPage{
		Shipments:   shipments,
		TotalCount:  total,
		PageSize:    model.PageSize,
		CurrentPage: page,
		TotalPages:  model.TotalPages(total, model.PageSize),
	}, nil
}

// ListShipmentsByTaxID возвращает грузы, где CPF/CNPJ указан отправителем или получателем,
// вместе с историей каждого груза.
func (r *PostgresRepository) ListShipmentsByTaxID(ctx context.Context, taxID string) ([]model.Shipment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shipmentColumns+`
		 FROM shipments
		 WHERE sender_tax_id = $1 OR recipient_tax_id = $1
		 ORDER BY created_at DESC, id DESC`,
		taxID,
	)
	if err != nil {
		return nil, fmt.Errorf("select shipments by tax id: %w", err)
	}

	shipments, err := collectShipments(rows)
	if err != nil || len(shipments) == 0 {
		return shipments, err
	}

	ids := make([]int64, len(shipments))
	for i := range shipments {
		ids[i] = shipments[i].ID
	}

	history, err := r.historyFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range shipments {
		shipments[i].History = history[shipments[i].ID]
	}
	return shipments, nil
}

// UpdateShipment применяет частичное обновление описательных полей груза.
func (r *PostgresRepository) UpdateShipment(ctx context.Context, id int64, u model.ShipmentUpdate) (*model.Shipment, error) {
	sets, args := shipmentUpdateClause(u)
	if sets == "" {
		return r.GetShipmentByID(ctx, id)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE shipments SET `+sets+` WHERE id = $1 RETURNING `+shipmentColumns,
		append([]any{id}, args...)...,
	)

	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShipmentNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrInvoiceExists
		}
		if isRangeViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	return s, nil
}

// DeleteShipment удаляет историю груза и сам груз в одной транзакции.
// Возвращает удалённую запись.
func (r *PostgresRepository) DeleteShipment(ctx context.Context, id int64) (*model.Shipment, error) {
	var deleted *model.Shipment

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM tracking_history WHERE shipment_id = $1`, id); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}

		s, err := scanShipment(tx.QueryRow(ctx,
			`DELETE FROM shipments WHERE id = $1 RETURNING `+shipmentColumns, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrShipmentNotFound
			}
			return fmt.Errorf("delete shipment: %w", err)
		}
		deleted = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Stats собирает показатели для панели сотрудников.
func (r *PostgresRepository) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		StatusCounts: make(map[model.ShipmentStatus]int, len(model.AllStatuses)),
	}
	for _, st := range model.AllStatuses {
		stats.StatusCounts[st] = 0
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM shipments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.StatusCounts[model.ShipmentStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	var revenue decimal.Decimal
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(freight_value), 0) FROM shipments WHERE status = $1`,
		string(model.StatusCompleted),
	).Scan(&revenue)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	stats.TotalRevenue = revenue

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM shipments WHERE created_at >= date_trunc('month', now())`,
	).Scan(&stats.MonthlyCount)
	if err != nil {
		return nil, fmt.Errorf("count monthly: %w", err)
	}

	return stats, nil
}
