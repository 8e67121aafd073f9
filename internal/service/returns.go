package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/metrics"
	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/policy"
)

// ErrRejectionReasonRequired возвращается при отказе в возврате без указания причины.
var ErrRejectionReasonRequired = fmt.Errorf("%w: rejection reason is required", model.ErrValidation)

func returnLocation(invoiceNumber string) string {
	return "Devolução solicitada pelo cliente. NF: " + invoiceNumber
}

// RequestReturn регистрирует заявку на возврат. Груз должен быть в статусе CONCLUIDA
// или уже EM_DEVOLUCAO; после заявки он переходит в EM_DEVOLUCAO.
func (s *Service) RequestReturn(ctx context.Context, rr *model.ReturnRequest) (*model.Shipment, error) {
	rr.InvoiceNumber = strings.TrimSpace(rr.InvoiceNumber)
	if rr.InvoiceNumber == "" || strings.TrimSpace(rr.RequesterName) == "" || strings.TrimSpace(rr.RequesterEmail) == "" {
		return nil, fmt.Errorf("%w: numeroNFOriginal, nomeCliente and emailCliente are required", model.ErrValidation)
	}

	sh, err := s.repo.CreateReturnRequest(ctx, rr, returnLocation(rr.InvoiceNumber))
	if err != nil {
		return nil, err
	}

	metrics.ReturnRequestsTotal.Inc()
	metrics.StatusChangesTotal.WithLabelValues(metrics.SourceReturn, string(model.StatusInReturn)).Inc()
	s.invalidateTracking(ctx, sh)
	s.logger.Info("return requested",
		zap.Int64("return_id", rr.ID),
		zap.String("invoice_number", rr.InvoiceNumber),
		zap.String("order_number", sh.OrderNumber),
	)
	return sh, nil
}

// ListReturns возвращает заявки на возврат, начиная с самых новых.
func (s *Service) ListReturns(ctx context.Context, id *model.Identity) ([]model.ReturnRequest, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	return s.repo.ListReturnRequests(ctx)
}

// ApproveReturn одобряет последнюю заявку на возврат по накладной и очищает причину отказа.
func (s *Service) ApproveReturn(ctx context.Context, id *model.Identity, invoiceNumber string) (*model.ReturnRequest, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	return s.repo.ResolveLatestReturn(ctx, invoiceNumber, model.ReturnApproved, nil)
}

// RejectReturn отклоняет последнюю заявку на возврат по накладной с указанием причины.
func (s *Service) RejectReturn(ctx context.Context, id *model.Identity, invoiceNumber, reason string) (*model.ReturnRequest, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}
	return s.repo.ResolveLatestReturn(ctx, invoiceNumber, model.ReturnRejected, &reason)
}
