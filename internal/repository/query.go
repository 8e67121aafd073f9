package repository

import (
	"fmt"
	"strings"

	"github.com/mmeshcher/coletas-service/internal/model"
)

const shipmentColumns = `id, order_number, client_name, client_email, pickup_address, cargo_type,
	sender_tax_id, recipient_tax_id, invoice_number, freight_value, weight_kg, due_date,
	status, payment_status, driver_token, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// pageOffset возвращает номер страницы, приведённый к 1, и смещение для LIMIT/OFFSET.
func pageOffset(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * size
}

// shipmentFilterClause строит условие WHERE для выборки грузов.
// Нумерация плейсхолдеров начинается с $1.
func shipmentFilterClause(f model.ShipmentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(order_number ILIKE $%[1]d OR invoice_number ILIKE $%[1]d OR client_name ILIKE $%[1]d OR recipient_tax_id ILIKE $%[1]d)", n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// shipmentUpdateClause строит список SET для частичного обновления груза.
// Нумерация плейсхолдеров начинается с $2, $1 зарезервирован под id.
func shipmentUpdateClause(u model.ShipmentUpdate) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
	}

	if u.ClientName != nil {
		add("client_name", *u.ClientName)
	}
	if u.ClientEmail != nil {
		add("client_email", *u.ClientEmail)
	}
	if u.PickupAddress != nil {
		add("pickup_address", *u.PickupAddress)
	}
	if u.CargoType != nil {
		add("cargo_type", *u.CargoType)
	}
	if u.SenderTaxID != nil {
		add("sender_tax_id", *u.SenderTaxID)
	}
	if u.RecipientTaxID != nil {
		add("recipient_tax_id", *u.RecipientTaxID)
	}
	if u.InvoiceNumber != nil {
		add("invoice_number", *u.InvoiceNumber)
	}
	if u.FreightValue != nil {
		add("freight_value", *u.FreightValue)
	}
	switch {
	case u.ClearWeight:
		sets = append(sets, "weight_kg = NULL")
	case u.WeightKg != nil:
		add("weight_kg", *u.WeightKg)
	}
	switch {
	case u.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case u.DueDate != nil:
		add("due_date", *u.DueDate)
	}
	if u.PaymentStatus != nil {
		add("payment_status", string(*u.PaymentStatus))
	}

	return strings.Join(sets, ", "), args
}
