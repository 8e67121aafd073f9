package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// amount число, принимаемое как JSON-число или строка. Пустая строка и null означают отсутствие значения.
type amount struct {
	value decimal.Decimal
	set   bool
}

func (a *amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		*a = amount{}
		return nil
	}
	if err := a.value.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	a.set = true
	return nil
}

func (a amount) decimal() *decimal.Decimal {
	if !a.set {
		return nil
	}
	v := a.value
	return &v
}

func (a amount) float() *float64 {
	if !a.set {
		return nil
	}
	v := a.value.InexactFloat64()
	return &v
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid date %q", model.ErrValidation, s)
}

type createShipmentRequest struct {
	ClientName     string  `json:"nomeCliente"`
	ClientEmail    string  `json:"emailCliente"`
	PickupAddress  string  `json:"enderecoColeta"`
	CargoType      string  `json:"tipoCarga"`
	SenderTaxID    string  `json:"cpfCnpjRemetente"`
	RecipientTaxID string  `json:"cpfCnpjDestinatario"`
	InvoiceNumber  string  `json:"numeroNotaFiscal"`
	FreightValue   amount  `json:"valorFrete"`
	WeightKg       amount  `json:"pesoKg"`
	DueDate        *string `json:"dataVencimento"`
}

func (req createShipmentRequest) toModel() (*model.Shipment, error) {
	sh := &model.Shipment{
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		PickupAddress:  req.PickupAddress,
		CargoType:      req.CargoType,
		SenderTaxID:    req.SenderTaxID,
		RecipientTaxID: req.RecipientTaxID,
		InvoiceNumber:  req.InvoiceNumber,
		WeightKg:       req.WeightKg.float(),
	}
	if v := req.FreightValue.decimal(); v != nil {
		sh.FreightValue = *v
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		sh.DueDate = due
	}
	return sh, nil
}

type updateShipmentRequest struct {
	ClientName     *string              `json:"nomeCliente"`
	ClientEmail    *string              `json:"emailCliente"`
	PickupAddress  *string              `json:"enderecoColeta"`
	CargoType      *string              `json:"tipoCarga"`
	SenderTaxID    *string              `json:"cpfCnpjRemetente"`
	RecipientTaxID *string              `json:"cpfCnpjDestinatario"`
	InvoiceNumber  *string              `json:"numeroNotaFiscal"`
	FreightValue   *amount              `json:"valorFrete"`
	WeightKg       json.RawMessage      `json:"pesoKg"`
	DueDate        json.RawMessage      `json:"dataVencimento"`
	PaymentStatus  *model.PaymentStatus `json:"statusPagamento"`
}

func (req updateShipmentRequest) toModel() (model.ShipmentUpdate, error) {
	u := model.ShipmentUpdate{
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		PickupAddress:  req.PickupAddress,
		CargoType:      req.CargoType,
		SenderTaxID:    req.SenderTaxID,
		RecipientTaxID: req.RecipientTaxID,
		InvoiceNumber:  req.InvoiceNumber,
		PaymentStatus:  req.PaymentStatus,
	}

	if len(req.WeightKg) > 0 {
		var w amount
		if err := json.Unmarshal(req.WeightKg, &w); err != nil {
			return u, fmt.Errorf("%w: pesoKg must be a number", model.ErrValidation)
		}
		if w.set {
			u.WeightKg = w.float()
		} else {
			u.ClearWeight = true
		}
	}

	if req.FreightValue != nil {
		v := req.FreightValue.value
		u.FreightValue = &v
	}

	if len(req.DueDate) > 0 {
		var raw *string
		if err := json.Unmarshal(req.DueDate, &raw); err != nil {
			return u, fmt.Errorf("%w: dataVencimento must be a string", model.ErrValidation)
		}
		if raw == nil || strings.TrimSpace(*raw) == "" {
			u.ClearDueDate = true
			return u, nil
		}
		due, err := parseDate(*raw)
		if err != nil {
			return u, err
		}
		u.DueDate = due
	}
	return u, nil
}

type historyResponse struct {
	ID         int64                `json:"id"`
	RecordedAt time.Time            `json:"data"`
	Status     model.ShipmentStatus `json:"status"`
	Location   string               `json:"localizacao"`
}

type shipmentResponse struct {
	ID             int64                `json:"id"`
	OrderNumber    string               `json:"numeroEncomenda"`
	ClientName     string               `json:"nomeCliente"`
	ClientEmail    string               `json:"emailCliente"`
	PickupAddress  string               `json:"enderecoColeta"`
	CargoType      string               `json:"tipoCarga"`
	SenderTaxID    string               `json:"cpfCnpjRemetente"`
	RecipientTaxID string               `json:"cpfCnpjDestinatario"`
	InvoiceNumber  string               `json:"numeroNotaFiscal"`
	FreightValue   float64              `json:"valorFrete"`
	WeightKg       *float64             `json:"pesoKg"`
	DueDate        *time.Time           `json:"dataVencimento"`
	Status         model.ShipmentStatus `json:"status"`
	PaymentStatus  model.PaymentStatus  `json:"statusPagamento"`
	DriverToken    string               `json:"driverToken,omitempty"`
	CreatedAt      time.Time            `json:"dataSolicitacao"`
	History        []historyResponse    `json:"historico,omitempty"`
}

// shipmentView выбирает, попадает ли токен водителя в ответ.
type shipmentView int

const (
	publicView shipmentView = iota
	staffView
)

func toShipmentResponse(s *model.Shipment, view shipmentView) shipmentResponse {
	resp := shipmentResponse{
		ID:             s.ID,
		OrderNumber:    s.OrderNumber,
		ClientName:     s.ClientName,
		ClientEmail:    s.ClientEmail,
		PickupAddress:  s.PickupAddress,
		CargoType:      s.CargoType,
		SenderTaxID:    s.SenderTaxID,
		RecipientTaxID: s.RecipientTaxID,
		InvoiceNumber:  s.InvoiceNumber,
		FreightValue:   s.FreightValue.InexactFloat64(),
		WeightKg:       s.WeightKg,
		DueDate:        s.DueDate,
		Status:         s.Status,
		PaymentStatus:  s.PaymentStatus,
		CreatedAt:      s.CreatedAt,
	}
	if view == staffView {
		resp.DriverToken = s.DriverToken
	}
	if len(s.History) > 0 {
		resp.History = make([]historyResponse, 0, len(s.History))
		for _, h := range s.History {
			resp.History = append(resp.History, historyResponse{
				ID:         h.ID,
				RecordedAt: h.RecordedAt,
				Status:     h.Status,
				Location:   h.Location,
			})
		}
	}
	return resp
}

func toShipmentResponses(list []model.Shipment, view shipmentView) []shipmentResponse {
	res := make([]shipmentResponse, 0, len(list))
	for i := range list {
		res = append(res, toShipmentResponse(&list[i], view))
	}
	return res
}

type paginationResponse struct {
	TotalCount  int `json:"totalCount"`
	PageSize    int `json:"pageSize"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

type shipmentPageResponse struct {
	Shipments  []shipmentResponse `json:"coletas"`
	Pagination paginationResponse `json:"pagination"`
}

type statsResponse struct {
	StatusCounts map[model.ShipmentStatus]int `json:"statusCounts"`
	TotalRevenue float64                      `json:"faturamentoTotal"`
	MonthlyCount int                          `json:"coletasMes"`
}

type trackRequest struct {
	OrderNumber string `json:"numeroEncomenda"`
	TaxID       string `json:"cpfCnpj"`
	Password    string `json:"senha"`
}

type driverUpdateRequest struct {
	OrderNumber string               `json:"numeroEncomenda"`
	Token       string               `json:"token"`
	Status      model.ShipmentStatus `json:"status"`
	Location    string               `json:"localizacao"`
}

type historyRequest struct {
	Status   model.ShipmentStatus `json:"status"`
	Location string               `json:"localizacao"`
}

type staffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type clientLoginRequest struct {
	TaxID    string `json:"cpfCnpj"`
	Password string `json:"senha"`
}

type tokenResponse struct {
	Message string `json:"message,omitempty"`
	Token   string `json:"token"`
}

type clientRequest struct {
	TaxID    string `json:"cpfCnpj"`
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type clientUpdateRequest struct {
	TaxID       *string `json:"cpfCnpj"`
	Name        *string `json:"nome"`
	Email       *string `json:"email"`
	NewPassword string  `json:"novaSenha"`
}

type clientResponse struct {
	ID    int64  `json:"id"`
	TaxID string `json:"cpfCnpj"`
	Name  string `json:"nome"`
	Email string `json:"email"`
}

func toClientResponse(c *model.Client) clientResponse {
	return clientResponse{ID: c.ID, TaxID: c.TaxID, Name: c.Name, Email: c.Email}
}

type registerClientResponse struct {
	Message string         `json:"message"`
	Client  clientResponse `json:"cliente"`
}

type employeeRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
	Name     string `json:"nome"`
}

type employeeUpdateRequest struct {
	Email    *string `json:"email"`
	Password string  `json:"senha"`
	Name     *string `json:"nome"`
}

type employeeResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"nome"`
}

func toEmployeeResponse(e *model.Employee) employeeResponse {
	return employeeResponse{ID: e.ID, Email: e.Email, Name: e.Name}
}

type returnRequest struct {
	InvoiceNumber  string `json:"numeroNFOriginal"`
	RequesterName  string `json:"nomeCliente"`
	RequesterEmail string `json:"emailCliente"`
	Reason         string `json:"motivoDevolucao"`
}

type rejectReturnRequest struct {
	Reason string `json:"motivoRejeicao"`
}

type returnResponse struct {
	ID              int64              `json:"id"`
	InvoiceNumber   string             `json:"numeroNFOriginal"`
	RequesterName   string             `json:"nomeCliente"`
	RequesterEmail  string             `json:"emailCliente"`
	Reason          string             `json:"motivoDevolucao"`
	Status          model.ReturnStatus `json:"statusProcessamento"`
	RejectionReason *string            `json:"motivoRejeicao"`
	RequestedAt     time.Time          `json:"dataSolicitacao"`
}

func toReturnResponse(rr *model.ReturnRequest) returnResponse {
	return returnResponse{
		ID:              rr.ID,
		InvoiceNumber:   rr.InvoiceNumber,
		RequesterName:   rr.RequesterName,
		RequesterEmail:  rr.RequesterEmail,
		Reason:          rr.Reason,
		Status:          rr.Status,
		RejectionReason: rr.RejectionReason,
		RequestedAt:     rr.RequestedAt,
	}
}

type returnShipmentSummary struct {
	OrderNumber string               `json:"numeroEncomenda"`
	Status      model.ShipmentStatus `json:"status"`
}

type returnCreatedResponse struct {
	Message   string                `json:"message"`
	Shipment  returnShipmentSummary `json:"coleta"`
	RequestID int64                 `json:"solicitacaoId"`
}
