package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// CreateShipment принимает новую заявку на забор.
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sh, err := req.toModel()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.service.CreateShipment(r.Context(), sh)
	if err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", req.InvoiceNumber))
		return
	}

	writeJSON(w, http.StatusCreated, toShipmentResponse(created, staffView))
}

// DriverUpdate меняет статус груза по токену водителя.
func (h *Handler) DriverUpdate(w http.ResponseWriter, r *http.Request) {
	var req driverUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	err := h.service.DriverUpdate(r.Context(), req.OrderNumber, req.Token, req.Status, req.Location)
	if err != nil {
		h.writeError(w, r, err, zap.String("order_number", req.OrderNumber))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Status atualizado com sucesso!"})
}

// ListShipments возвращает страницу грузов для сотрудника.
func (h *Handler) ListShipments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, errInvalidPage)
			return
		}
		page = p
	}

	res, err := h.service.ListShipments(r.Context(), identity(r), model.ShipmentFilter{
		Status: model.ShipmentStatus(q.Get("status")),
		Search: q.Get("search"),
		Page:   page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shipmentPageResponse{
		Shipments: toShipmentResponses(res.Shipments, staffView),
		Pagination: paginationResponse{
			TotalCount:  res.TotalCount,
			PageSize:    res.PageSize,
			CurrentPage: res.CurrentPage,
			TotalPages:  res.TotalPages,
		},
	})
}

// UpdateShipment меняет описательные поля груза и статус оплаты.
func (h *Handler) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateShipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := req.toModel()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.service.UpdateShipment(r.Context(), identity(r), id, u)
	if err != nil {
		h.writeError(w, r, err, zap.Int64("shipment_id", id))
		return
	}

	writeJSON(w, http.StatusOK, toShipmentResponse(updated, staffView))
}

// DeleteShipment удаляет груз вместе с историей.
func (h *Handler) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteShipment(r.Context(), identity(r), id); err != nil {
		h.writeError(w, r, err, zap.Int64("shipment_id", id))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Coleta excluída com sucesso."})
}

// AppendHistory добавляет запись истории и меняет статус груза по номеру накладной.
func (h *Handler) AppendHistory(w http.ResponseWriter, r *http.Request) {
	nf := chi.URLParam(r, "nf")

	var req historyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.service.AppendStatusByInvoice(r.Context(), identity(r), nf, req.Status, req.Location)
	if err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", nf))
		return
	}

	writeJSON(w, http.StatusCreated, toShipmentResponse(updated, staffView))
}

// Stats возвращает показатели для панели сотрудников.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		StatusCounts: stats.StatusCounts,
		TotalRevenue: stats.TotalRevenue.InexactFloat64(),
		MonthlyCount: stats.MonthlyCount,
	})
}

// MyShipments возвращает грузы текущего клиента.
func (h *Handler) MyShipments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.MyShipments(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toShipmentResponses(list, publicView))
}
