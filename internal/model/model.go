// Package model содержит доменные сущности сервиса заявок на забор и отслеживания грузов.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentStatus описывает этап жизненного цикла груза.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "PENDENTE"
	StatusCollected      ShipmentStatus = "COLETADO"
	StatusInTransit      ShipmentStatus = "EM_TRANSITO"
	StatusOutForDelivery ShipmentStatus = "EM_ROTA_ENTREGA"
	StatusCompleted      ShipmentStatus = "CONCLUIDA"
	StatusCancelled      ShipmentStatus = "CANCELADA"
	StatusInReturn       ShipmentStatus = "EM_DEVOLUCAO"
)

// AllStatuses перечисляет все статусы в порядке жизненного цикла.
var AllStatuses = []ShipmentStatus{
	StatusPending,
	StatusCollected,
	StatusInTransit,
	StatusOutForDelivery,
	StatusCompleted,
	StatusCancelled,
	StatusInReturn,
}

// Valid сообщает, входит ли значение в перечисление статусов.
func (s ShipmentStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// AllowsReturn сообщает, можно ли открыть заявку на возврат из этого статуса.
func (s ShipmentStatus) AllowsReturn() bool {
	return s == StatusCompleted || s == StatusInReturn
}

// PaymentStatus описывает состояние оплаты, независимое от статуса доставки.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDENTE"
	PaymentPaid      PaymentStatus = "PAGO"
	PaymentCancelled PaymentStatus = "CANCELADO"
)

// Valid сообщает, входит ли значение в перечисление статусов оплаты.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentCancelled:
		return true
	}
	return false
}

const orderNumberBase = 1000

// FormatOrderNumber выводит публичный номер заказа из идентификатора записи.
func FormatOrderNumber(id int64) string {
	return fmt.Sprintf("OC-%d", orderNumberBase+id)
}

// Shipment описывает заявку на забор и доставку груза.
type Shipment struct {
	ID             int64
	OrderNumber    string
	ClientName     string
	ClientEmail    string
	PickupAddress  string
	CargoType      string
	SenderTaxID    string
	RecipientTaxID string
	InvoiceNumber  string
	FreightValue   decimal.Decimal
	WeightKg       *float64
	DueDate        *time.Time
	Status         ShipmentStatus
	PaymentStatus  PaymentStatus
	DriverToken    string
	CreatedAt      time.Time
	History        []HistoryEntry
}

// HistoryEntry фиксирует одно наблюдение статуса груза.
type HistoryEntry struct {
	ID         int64
	ShipmentID int64
	Status     ShipmentStatus
	Location   string
	RecordedAt time.Time
}

// ShipmentUpdate содержит изменяемые сотрудником описательные поля груза.
// Nil означает, что поле не меняется; ClearWeight и ClearDueDate обнуляют поле.
type ShipmentUpdate struct {
	ClientName     *string
	ClientEmail    *string
	PickupAddress  *string
	CargoType      *string
	SenderTaxID    *string
	RecipientTaxID *string
	InvoiceNumber  *string
	FreightValue   *decimal.Decimal
	WeightKg       *float64
	ClearWeight    bool
	DueDate        *time.Time
	ClearDueDate   bool
	PaymentStatus  *PaymentStatus
}

// ShipmentFilter задаёт параметры постраничной выборки грузов.
type ShipmentFilter struct {
	Status ShipmentStatus
	Search string
	Page   int
}

// PageSize фиксированный размер страницы в списках для сотрудников.
const PageSize = 10

// ShipmentPage содержит страницу грузов и метаданные пагинации.
type ShipmentPage struct {
	Shipments   []Shipment
	TotalCount  int
	PageSize    int
	CurrentPage int
	TotalPages  int
}

// TotalPages вычисляет число страниц для total записей.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// PublicTracking содержит сведения о грузе, доступные без аутентификации.
type PublicTracking struct {
	OrderNumber string         `json:"numeroEncomenda"`
	Status      ShipmentStatus `json:"status"`
	History     []PublicEvent  `json:"historico"`
}

// PublicEvent запись истории без персональных данных.
type PublicEvent struct {
	RecordedAt time.Time      `json:"data"`
	Status     ShipmentStatus `json:"status"`
	Location   string         `json:"localizacao"`
}

// Stats агрегированные показатели для панели сотрудников.
type Stats struct {
	StatusCounts map[ShipmentStatus]int
	TotalRevenue decimal.Decimal
	MonthlyCount int
}

// ReturnStatus описывает состояние обработки заявки на возврат.
type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "PENDENTE"
	ReturnApproved ReturnStatus = "APROVADA"
	ReturnRejected ReturnStatus = "REJEITADA"
)

// ReturnRequest заявка на возврат, связанная с грузом через номер накладной.
type ReturnRequest struct {
	ID              int64
	InvoiceNumber   string
	RequesterName   string
	RequesterEmail  string
	Reason          string
	Status          ReturnStatus
	RejectionReason *string
	RequestedAt     time.Time
}

// Role роль субъекта в токене доступа.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "cliente"
)

// Known сообщает, является ли роль одной из поддерживаемых.
func (r Role) Known() bool {
	return r == RoleAdmin || r == RoleClient
}

// Identity данные субъекта, извлечённые из проверенного токена.
type Identity struct {
	ID    int64
	Role  Role
	Email string
	TaxID string
}

// Employee сотрудник транспортной компании.
type Employee struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash []byte
}

// Client клиент, идентифицируемый по CPF/CNPJ.
type Client struct {
	ID           int64
	TaxID        string
	Name         string
	Email        string
	PasswordHash []byte
}

// EmployeeUpdate изменяемые поля сотрудника. Nil означает, что поле не меняется.
type EmployeeUpdate struct {
	Name         *string
	Email        *string
	PasswordHash []byte
}

// ClientUpdate изменяемые поля клиента. Nil означает, что поле не меняется.
type ClientUpdate struct {
	Name         *string
	Email        *string
	TaxID        *string
	PasswordHash []byte
}
