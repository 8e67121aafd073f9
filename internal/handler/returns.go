package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// RequestReturn регистрирует заявку на возврат.
func (h *Handler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rr := &model.ReturnRequest{
		InvoiceNumber:  req.InvoiceNumber,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Reason:         req.Reason,
	}
	sh, err := h.service.RequestReturn(r.Context(), rr)
	if err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", req.InvoiceNumber))
		return
	}

	writeJSON(w, http.StatusCreated, returnCreatedResponse{
		Message:   "Solicitação de devolução registrada com sucesso. O status da coleta foi atualizado.",
		Shipment:  returnShipmentSummary{OrderNumber: sh.OrderNumber, Status: sh.Status},
		RequestID: rr.ID,
	})
}

// ListReturns возвращает заявки на возврат.
func (h *Handler) ListReturns(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListReturns(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := make([]returnResponse, 0, len(list))
	for i := range list {
		res = append(res, toReturnResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, res)
}

// ApproveReturn одобряет последнюю заявку на возврат по накладной.
func (h *Handler) ApproveReturn(w http.ResponseWriter, r *http.Request) {
	nf := chi.URLParam(r, "nf")

	rr, err := h.service.ApproveReturn(r.Context(), identity(r), nf)
	if err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", nf))
		return
	}

	writeJSON(w, http.StatusOK, toReturnResponse(rr))
}

// RejectReturn отклоняет последнюю заявку на возврат по накладной.
func (h *Handler) RejectReturn(w http.ResponseWriter, r *http.Request) {
	nf := chi.URLParam(r, "nf")

	var req rejectReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rr, err := h.service.RejectReturn(r.Context(), identity(r), nf, req.Reason)
	if err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", nf))
		return
	}

	writeJSON(w, http.StatusOK, toReturnResponse(rr))
}
