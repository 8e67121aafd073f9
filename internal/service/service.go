// Package service реализует бизнес-логику сервиса заявок на забор и отслеживания грузов.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateShipment(ctx context.Context, s *model.Shipment, location string) error
	GetShipmentByID(ctx context.Context, id int64) (*model.Shipment, error)
	GetShipmentByOrderNumber(ctx context.Context, orderNumber string) (*model.Shipment, error)
	GetShipmentByInvoice(ctx context.Context, invoiceNumber string) (*model.Shipment, error)
	GetShipmentByOrderOrInvoice(ctx context.Context, ref string) (*model.Shipment, error)
	GetHistory(ctx context.Context, shipmentID int64) ([]model.HistoryEntry, error)
	AppendStatus(ctx context.Context, shipmentID int64, status model.ShipmentStatus, location string) (*model.HistoryEntry, error)
	ListShipments(ctx context.Context, f model.ShipmentFilter) (*model.ShipmentPage, error)
	ListShipmentsByTaxID(ctx context.Context, taxID string) ([]model.Shipment, error)
	UpdateShipment(ctx context.Context, id int64, u model.ShipmentUpdate) (*model.Shipment, error)
	DeleteShipment(ctx context.Context, id int64) (*model.Shipment, error)
	Stats(ctx context.Context) (*model.Stats, error)

	CreateReturnRequest(ctx context.Context, rr *model.ReturnRequest, location string) (*model.Shipment, error)
	ListReturnRequests(ctx context.Context) ([]model.ReturnRequest, error)
	ResolveLatestReturn(ctx context.Context, invoiceNumber string, status model.ReturnStatus, rejectionReason *string) (*model.ReturnRequest, error)

	CreateEmployee(ctx context.Context, e *model.Employee) error
	GetEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	UpdateEmployee(ctx context.Context, id int64, u model.EmployeeUpdate) (*model.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error

	CreateClient(ctx context.Context, c *model.Client) error
	GetClientByTaxID(ctx context.Context, taxID string) (*model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	UpdateClient(ctx context.Context, id int64, u model.ClientUpdate) (*model.Client, error)
}

// TrackingCache кэш сериализованных ответов публичного отслеживания.
// Delete повышает версию ключа, SetIfVersion пишет только при неизменной версии.
type TrackingCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, version int64, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenIssuer выпускает токены доступа для проверенных идентичностей.
type TokenIssuer interface {
	IssueToken(id *model.Identity) (string, error)
}

// Service содержит бизнес-логику сервиса.
type Service struct {
	repo     Repository
	tokens   TokenIssuer
	cache    TrackingCache
	logger   *zap.Logger
	newToken func() (string, error)
}

// NewService создаёт сервис. cache может быть nil, тогда публичное отслеживание
// всегда читает хранилище.
func NewService(repo Repository, tokens TokenIssuer, cache TrackingCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		cache:    cache,
		logger:   logger,
		newToken: newDriverToken,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

const driverTokenBytes = 16

func newDriverToken() (string, error) {
	b := make([]byte, driverTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate driver token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func required(field string) error {
	return fmt.Errorf("%w: %s is required", model.ErrValidation, field)
}
