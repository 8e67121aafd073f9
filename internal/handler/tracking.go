package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TrackPublic возвращает статус и историю груза без персональных данных.
func (h *Handler) TrackPublic(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")

	tracking, err := h.service.TrackPublic(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err, zap.String("ref", ref))
		return
	}

	writeJSON(w, http.StatusOK, tracking)
}

// TrackSender возвращает груз отправителю по номеру заказа и CPF/CNPJ.
func (h *Handler) TrackSender(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sh, err := h.service.TrackAsSender(r.Context(), req.OrderNumber, req.TaxID)
	if err != nil {
		h.writeError(w, r, err, zap.String("order_number", req.OrderNumber))
		return
	}

	writeJSON(w, http.StatusOK, toShipmentResponse(sh, publicView))
}

// TrackRecipient возвращает груз получателю после проверки его учётной записи.
func (h *Handler) TrackRecipient(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sh, err := h.service.TrackAsRecipient(r.Context(), req.OrderNumber, req.TaxID, req.Password)
	if err != nil {
		h.writeError(w, r, err, zap.String("order_number", req.OrderNumber))
		return
	}

	writeJSON(w, http.StatusOK, toShipmentResponse(sh, publicView))
}
