package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/metrics"
	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/policy"
)

// InitialLocation описание первой записи истории нового груза.
const InitialLocation = "Solicitação recebida pela transportadora"

// Ошибки проверки данных груза.
var (
	ErrInvalidFreight       = fmt.Errorf("%w: freight value is required and must be between 0.01 and 9999999999.99", model.ErrValidation)
	ErrInvalidStatus        = fmt.Errorf("%w: invalid status", model.ErrValidation)
	ErrInvalidPaymentStatus = fmt.Errorf("%w: invalid payment status", model.ErrValidation)
	ErrInvalidWeight        = fmt.Errorf("%w: weight must not be negative", model.ErrValidation)
)

// maxFreight первое значение, не помещающееся в NUMERIC(12, 2).
var maxFreight = decimal.New(1, 10)

// normalizeFreight округляет стоимость до копеек и проверяет, что она положительна
// и помещается в колонку.
func normalizeFreight(v decimal.Decimal) (decimal.Decimal, error) {
	rounded := v.Round(2)
	if !rounded.IsPositive() || !rounded.LessThan(maxFreight) {
		return decimal.Decimal{}, ErrInvalidFreight
	}
	return rounded, nil
}

// CreateShipment регистрирует заявку на забор. Груз получает статус PENDENTE,
// номер заказа, токен водителя и первую запись истории.
func (s *Service) CreateShipment(ctx context.Context, sh *model.Shipment) (*model.Shipment, error) {
	freight, err := normalizeFreight(sh.FreightValue)
	if err != nil {
		return nil, err
	}
	sh.FreightValue = freight
	sh.InvoiceNumber = strings.TrimSpace(sh.InvoiceNumber)
	if sh.InvoiceNumber == "" {
		return nil, required("numeroNotaFiscal")
	}
	if sh.WeightKg != nil && *sh.WeightKg < 0 {
		return nil, ErrInvalidWeight
	}

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}
	sh.DriverToken = token

	if err := s.repo.CreateShipment(ctx, sh, InitialLocation); err != nil {
		return nil, err
	}

	metrics.ShipmentsCreatedTotal.Inc()
	s.logger.Info("shipment created",
		zap.Int64("shipment_id", sh.ID),
		zap.String("order_number", sh.OrderNumber),
		zap.String("invoice_number", sh.InvoiceNumber),
	)
	return sh, nil
}

// AppendStatusByInvoice меняет статус груза по номеру накладной от имени сотрудника.
func (s *Service) AppendStatusByInvoice(ctx context.Context, id *model.Identity, invoiceNumber string, status model.ShipmentStatus, location string) (*model.Shipment, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	if err := validateTransition(status, location); err != nil {
		return nil, err
	}

	sh, err := s.repo.GetShipmentByInvoice(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	if err := s.appendStatus(ctx, sh, status, location, metrics.SourceStaff); err != nil {
		return nil, err
	}
	return s.withHistory(ctx, sh)
}

// DriverUpdate меняет статус груза по номеру заказа, если предъявлен токен водителя этого груза.
func (s *Service) DriverUpdate(ctx context.Context, orderNumber, token string, status model.ShipmentStatus, location string) error {
	if orderNumber == "" {
		return required("numeroEncomenda")
	}
	if token == "" {
		return required("token")
	}
	if err := validateTransition(status, location); err != nil {
		return err
	}

	sh, err := s.repo.GetShipmentByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	if err := policy.CheckDriverToken(sh, token); err != nil {
		metrics.DriverTokenRejectionsTotal.Inc()
		s.logger.Warn("driver token rejected", zap.String("order_number", orderNumber))
		return err
	}

	return s.appendStatus(ctx, sh, status, location, metrics.SourceDriver)
}

func validateTransition(status model.ShipmentStatus, location string) error {
	if status == "" {
		return required("status")
	}
	if !status.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}
	if strings.TrimSpace(location) == "" {
		return required("localizacao")
	}
	return nil
}

// appendStatus применяет смену статуса и обновляет sh на месте.
func (s *Service) appendStatus(ctx context.Context, sh *model.Shipment, status model.ShipmentStatus, location, source string) error {
	if _, err := s.repo.AppendStatus(ctx, sh.ID, status, location); err != nil {
		return err
	}

	sh.Status = status

	metrics.StatusChangesTotal.WithLabelValues(source, string(status)).Inc()
	s.invalidateTracking(ctx, sh)
	return nil
}

// UpdateShipment применяет изменения описательных полей и статуса оплаты.
func (s *Service) UpdateShipment(ctx context.Context, id *model.Identity, shipmentID int64, u model.ShipmentUpdate) (*model.Shipment, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	if u.FreightValue != nil {
		freight, err := normalizeFreight(*u.FreightValue)
		if err != nil {
			return nil, err
		}
		u.FreightValue = &freight
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidPaymentStatus, *u.PaymentStatus)
	}
	if u.WeightKg != nil && *u.WeightKg < 0 {
		return nil, ErrInvalidWeight
	}
	if u.InvoiceNumber != nil {
		trimmed := strings.TrimSpace(*u.InvoiceNumber)
		if trimmed == "" {
			return nil, required("numeroNotaFiscal")
		}
		u.InvoiceNumber = &trimmed
	}

	before, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	after, err := s.repo.UpdateShipment(ctx, shipmentID, u)
	if err != nil {
		return nil, err
	}

	s.invalidateTracking(ctx, before, after)
	return after, nil
}

// DeleteShipment удаляет груз вместе с историей.
func (s *Service) DeleteShipment(ctx context.Context, id *model.Identity, shipmentID int64) error {
	if err := policy.RequireStaff(id); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteShipment(ctx, shipmentID)
	if err != nil {
		return err
	}

	s.invalidateTracking(ctx, deleted)
	s.logger.Info("shipment deleted",
		zap.Int64("shipment_id", deleted.ID),
		zap.String("order_number", deleted.OrderNumber),
		zap.Int64("employee_id", id.ID),
	)
	return nil
}

// ListShipments возвращает страницу грузов для сотрудника. Неизвестный статус в фильтре игнорируется.
func (s *Service) ListShipments(ctx context.Context, id *model.Identity, f model.ShipmentFilter) (*model.ShipmentPage, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	if !f.Status.Valid() {
		f.Status = ""
	}
	return s.repo.ListShipments(ctx, f)
}

// Stats возвращает показатели для панели сотрудников.
func (s *Service) Stats(ctx context.Context, id *model.Identity) (*model.Stats, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx)
}

// MyShipments возвращает грузы, где клиент указан отправителем или получателем.
func (s *Service) MyShipments(ctx context.Context, id *model.Identity) ([]model.Shipment, error) {
	if err := policy.RequireClient(id); err != nil {
		return nil, err
	}

	shipments, err := s.repo.ListShipmentsByTaxID(ctx, id.TaxID)
	if err != nil {
		return nil, err
	}

	owned := shipments[:0]
	for i := range shipments {
		if policy.OwnsShipment(id, &shipments[i]) {
			owned = append(owned, shipments[i])
		}
	}
	return owned, nil
}

// ShipmentByInvoice возвращает груз для формирования документов.
func (s *Service) ShipmentByInvoice(ctx context.Context, invoiceNumber string) (*model.Shipment, error) {
	if invoiceNumber == "" {
		return nil, required("nf")
	}
	return s.repo.GetShipmentByInvoice(ctx, invoiceNumber)
}
