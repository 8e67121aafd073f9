// Package handler содержит HTTP-обработчики API сервиса заявок на забор.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/middleware"
	"github.com/mmeshcher/coletas-service/internal/model"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateShipment(ctx context.Context, sh *model.Shipment) (*model.Shipment, error)
	AppendStatusByInvoice(ctx context.Context, id *model.Identity, invoiceNumber string, status model.ShipmentStatus, location string) (*model.Shipment, error)
	DriverUpdate(ctx context.Context, orderNumber, token string, status model.ShipmentStatus, location string) error
	UpdateShipment(ctx context.Context, id *model.Identity, shipmentID int64, u model.ShipmentUpdate) (*model.Shipment, error)
	DeleteShipment(ctx context.Context, id *model.Identity, shipmentID int64) error
	ListShipments(ctx context.Context, id *model.Identity, f model.ShipmentFilter) (*model.ShipmentPage, error)
	Stats(ctx context.Context, id *model.Identity) (*model.Stats, error)
	MyShipments(ctx context.Context, id *model.Identity) ([]model.Shipment, error)
	ShipmentByInvoice(ctx context.Context, invoiceNumber string) (*model.Shipment, error)

	TrackPublic(ctx context.Context, ref string) (*model.PublicTracking, error)
	TrackAsSender(ctx context.Context, orderNumber, taxID string) (*model.Shipment, error)
	TrackAsRecipient(ctx context.Context, orderNumber, taxID, password string) (*model.Shipment, error)

	LoginStaff(ctx context.Context, email, password string) (string, error)
	LoginClient(ctx context.Context, taxID, password string) (string, error)
	RegisterClient(ctx context.Context, c *model.Client, password string) error

	ListEmployees(ctx context.Context, id *model.Identity) ([]model.Employee, error)
	CreateEmployee(ctx context.Context, id *model.Identity, email, password, name string) (*model.Employee, error)
	UpdateEmployee(ctx context.Context, id *model.Identity, employeeID int64, name, email *string, password string) (*model.Employee, error)
	DeleteEmployee(ctx context.Context, id *model.Identity, employeeID int64) error
	CreateClient(ctx context.Context, id *model.Identity, c *model.Client) error
	ListClients(ctx context.Context, id *model.Identity) ([]model.Client, error)
	UpdateClient(ctx context.Context, id *model.Identity, clientID int64, u model.ClientUpdate, newPassword string) (*model.Client, error)

	RequestReturn(ctx context.Context, rr *model.ReturnRequest) (*model.Shipment, error)
	ListReturns(ctx context.Context, id *model.Identity) ([]model.ReturnRequest, error)
	ApproveReturn(ctx context.Context, id *model.Identity, invoiceNumber string) (*model.ReturnRequest, error)
	RejectReturn(ctx context.Context, id *model.Identity, invoiceNumber, reason string) (*model.ReturnRequest, error)
}

// Handler реализует HTTP-обработчики API сервиса заявок на забор.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

var (
	errInvalidBody = fmt.Errorf("%w: invalid JSON body", model.ErrValidation)
	errInvalidPage = fmt.Errorf("%w: page must be a number", model.ErrValidation)
)

const internalErrorMessage = "internal server error"

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError отвечает {"error": ...} с кодом категории ошибки.
// Внутренние ошибки логируются, клиенту уходит общее сообщение.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		fields = append(fields,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		h.logger.Error("request failed", fields...)
		writeJSON(w, status, errorResponse{Error: internalErrorMessage})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

func identity(r *http.Request) *model.Identity {
	id, _ := middleware.GetIdentityFromContext(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrValidation, name)
	}
	return id, nil
}
