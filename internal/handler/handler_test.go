package handler

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/middleware"
	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/policy"
	"github.com/mmeshcher/coletas-service/internal/service"
)

type stubService struct {
	shipment    *model.Shipment
	shipmentErr error
	shipments   []model.Shipment
	page        *model.ShipmentPage
	stats       *model.Stats
	tracking    *model.PublicTracking
	token       string
	returnReq   *model.ReturnRequest
	err         error

	gotShipment *model.Shipment
	gotFilter   model.ShipmentFilter
	gotUpdate   model.ShipmentUpdate
	gotIdentity *model.Identity
	gotReason   string
	gotPassword string
}

func (s *stubService) CreateShipment(ctx context.Context, sh *model.Shipment) (*model.Shipment, error) {
	s.gotShipment = sh
	if s.err != nil {
		return nil, s.err
	}
	sh.ID = 1
	sh.OrderNumber = model.FormatOrderNumber(1)
	sh.Status = model.StatusPending
	sh.PaymentStatus = model.PaymentPending
	sh.DriverToken = "cafebabe"
	return sh, nil
}

func (s *stubService) AppendStatusByInvoice(ctx context.Context, id *model.Identity, invoiceNumber string, status model.ShipmentStatus, location string) (*model.Shipment, error) {
	s.gotIdentity = id
	return s.shipment, s.err
}

func (s *stubService) DriverUpdate(ctx context.Context, orderNumber, token string, status model.ShipmentStatus, location string) error {
	return s.err
}

func (s *stubService) UpdateShipment(ctx context.Context, id *model.Identity, shipmentID int64, u model.ShipmentUpdate) (*model.Shipment, error) {
	s.gotUpdate = u
	return s.shipment, s.err
}

func (s *stubService) DeleteShipment(ctx context.Context, id *model.Identity, shipmentID int64) error {
	return s.err
}

func (s *stubService) ListShipments(ctx context.Context, id *model.Identity, f model.ShipmentFilter) (*model.ShipmentPage, error) {
	s.gotFilter = f
	return s.page, s.err
}

func (s *stubService) Stats(ctx context.Context, id *model.Identity) (*model.Stats, error) {
	return s.stats, s.err
}

func (s *stubService) MyShipments(ctx context.Context, id *model.Identity) ([]model.Shipment, error) {
	s.gotIdentity = id
	return s.shipments, s.err
}

func (s *stubService) ShipmentByInvoice(ctx context.Context, invoiceNumber string) (*model.Shipment, error) {
	return s.shipment, s.shipmentErr
}

func (s *stubService) TrackPublic(ctx context.Context, ref string) (*model.PublicTracking, error) {
	return s.tracking, s.err
}

func (s *stubService) TrackAsSender(ctx context.Context, orderNumber, taxID string) (*model.Shipment, error) {
	return s.shipment, s.err
}

func (s *stubService) TrackAsRecipient(ctx context.Context, orderNumber, taxID, password string) (*model.Shipment, error) {
	s.gotPassword = password
	return s.shipment, s.err
}

func (s *stubService) LoginStaff(ctx context.Context, email, password string) (string, error) {
	return s.token, s.err
}

func (s *stubService) LoginClient(ctx context.Context, taxID, password string) (string, error) {
	return s.token, s.err
}

func (s *stubService) RegisterClient(ctx context.Context, c *model.Client, password string) error {
	if s.err != nil {
		return s.err
	}
	c.ID = 3
	return nil
}

func (s *stubService) ListEmployees(ctx context.Context, id *model.Identity) ([]model.Employee, error) {
	return []model.Employee{{ID: 1, Email: "ana@transportes.com", Name: "Ana", PasswordHash: []byte("hash")}}, s.err
}

func (s *stubService) CreateEmployee(ctx context.Context, id *model.Identity, email, password, name string) (*model.Employee, error) {
	return &model.Employee{ID: 2, Email: email, Name: name}, s.err
}

func (s *stubService) UpdateEmployee(ctx context.Context, id *model.Identity, employeeID int64, name, email *string, password string) (*model.Employee, error) {
	return &model.Employee{ID: employeeID}, s.err
}

func (s *stubService) DeleteEmployee(ctx context.Context, id *model.Identity, employeeID int64) error {
	return s.err
}

func (s *stubService) CreateClient(ctx context.Context, id *model.Identity, c *model.Client) error {
	return s.err
}

func (s *stubService) ListClients(ctx context.Context, id *model.Identity) ([]model.Client, error) {
	return nil, s.err
}

func (s *stubService) UpdateClient(ctx context.Context, id *model.Identity, clientID int64, u model.ClientUpdate, newPassword string) (*model.Client, error) {
	return &model.Client{ID: clientID}, s.err
}

func (s *stubService) RequestReturn(ctx context.Context, rr *model.ReturnRequest) (*model.Shipment, error) {
	if s.err != nil {
		return nil, s.err
	}
	rr.ID = 9
	return s.shipment, nil
}

func (s *stubService) ListReturns(ctx context.Context, id *model.Identity) ([]model.ReturnRequest, error) {
	return nil, s.err
}

func (s *stubService) ApproveReturn(ctx context.Context, id *model.Identity, invoiceNumber string) (*model.ReturnRequest, error) {
	return s.returnReq, s.err
}

func (s *stubService) RejectReturn(ctx context.Context, id *model.Identity, invoiceNumber, reason string) (*model.ReturnRequest, error) {
	s.gotReason = reason
	return s.returnReq, s.err
}

var _ Service = (*service.Service)(nil)

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	return NewHandler(svc, zap.NewNop(), middleware.NewAuthMiddleware("test-secret"))
}

func tokenFor(t *testing.T, h *Handler, id *model.Identity) string {
	t.Helper()

	token, err := h.authMiddleware.IssueToken(id)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, h *Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.SetupRouter(nil).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

var (
	staffID  = &model.Identity{ID: 1, Role: model.RoleAdmin, Email: "admin@transportes.com"}
	clientID = &model.Identity{ID: 7, Role: model.RoleClient, TaxID: "529.982.247-25"}
)

func sampleShipment() *model.Shipment {
	return &model.Shipment{
		ID:             1,
		OrderNumber:    "OC-1001",
		InvoiceNumber:  "482913",
		SenderTaxID:    "529.982.247-25",
		RecipientTaxID: "11.222.333/0001-81",
		FreightValue:   decimal.RequireFromString("150.00"),
		Status:         model.StatusInTransit,
		PaymentStatus:  model.PaymentPending,
		DriverToken:    "cafebabe",
		CreatedAt:      time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		History: []model.HistoryEntry{
			{ID: 2, Status: model.StatusInTransit, Location: "Hub X"},
			{ID: 1, Status: model.StatusPending, Location: "Solicitação recebida pela transportadora"},
		},
	}
}

func TestCreateShipment_Success(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPost, "/api/coletas/solicitar",
		`{"nomeCliente":"Gabriela","numeroNotaFiscal":"482913","valorFrete":"150.00","pesoKg":"","dataVencimento":"2025-04-10"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	decodeBody(t, rec, &resp)
	assert.Equal(t, "OC-1001", resp["numeroEncomenda"])
	assert.Equal(t, "PENDENTE", resp["status"])
	assert.Equal(t, "cafebabe", resp["driverToken"])
	assert.Equal(t, 150.0, resp["valorFrete"])

	require.NotNil(t, svc.gotShipment)
	assert.True(t, decimal.RequireFromString("150").Equal(svc.gotShipment.FreightValue))
	assert.Nil(t, svc.gotShipment.WeightKg)
	require.NotNil(t, svc.gotShipment.DueDate)
	assert.Equal(t, 10, svc.gotShipment.DueDate.Day())
}

func TestCreateShipment_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "broken json", body: `{"valorFrete":`, status: http.StatusBadRequest},
		{name: "freight not a number", body: `{"valorFrete":"abc"}`, status: http.StatusBadRequest},
		{name: "bad date", body: `{"valorFrete":10,"dataVencimento":"amanhã"}`, status: http.StatusBadRequest},
		{name: "validation", body: `{"valorFrete":0}`, err: service.ErrInvalidFreight, status: http.StatusBadRequest},
		{name: "duplicate invoice", body: `{"valorFrete":10}`, err: fmt.Errorf("%w: dup", model.ErrConflict), status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{err: tt.err})

			rec := do(t, h, http.MethodPost, "/api/coletas/solicitar", tt.body, "")
			assert.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			decodeBody(t, rec, &resp)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestInternalErrorIsNotLeaked(t *testing.T) {
	h := newTestHandler(t, &stubService{err: errors.New("pq: relation shipments does not exist")})

	rec := do(t, h, http.MethodGet, "/api/rastreamento/publico/OC-1001", "", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, internalErrorMessage, resp.Error)
}

func TestTrackPublic(t *testing.T) {
	h := newTestHandler(t, &stubService{tracking: &model.PublicTracking{
		OrderNumber: "OC-1001",
		Status:      model.StatusInTransit,
		History:     []model.PublicEvent{{Status: model.StatusInTransit, Location: "Hub X"}},
	}})

	rec := do(t, h, http.MethodGet, "/api/rastreamento/publico/482913", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decodeBody(t, rec, &resp)
	assert.Equal(t, "OC-1001", resp["numeroEncomenda"])
	assert.Len(t, resp["historico"], 1)
	assert.NotContains(t, resp, "cpfCnpjRemetente")
}

func TestTrackPublic_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{err: fmt.Errorf("shipment %w", model.ErrNotFound)})

	rec := do(t, h, http.MethodGet, "/api/rastreamento/publico/OC-9999", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackSender_HidesDriverToken(t *testing.T) {
	h := newTestHandler(t, &stubService{shipment: sampleShipment()})

	rec := do(t, h, http.MethodPost, "/api/rastreamento/remetente",
		`{"numeroEncomenda":"OC-1001","cpfCnpj":"529.982.247-25"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decodeBody(t, rec, &resp)
	assert.NotContains(t, resp, "driverToken")
	assert.Len(t, resp["historico"], 2)
}

func TestTrackSender_Mismatch(t *testing.T) {
	h := newTestHandler(t, &stubService{err: policy.ErrSenderMismatch})

	rec := do(t, h, http.MethodPost, "/api/rastreamento/remetente",
		`{"numeroEncomenda":"OC-1001","cpfCnpj":"000"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrackRecipient_PassesPassword(t *testing.T) {
	svc := &stubService{shipment: sampleShipment()}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPost, "/api/rastreamento/destinatario",
		`{"numeroEncomenda":"OC-1001","cpfCnpj":"11.222.333/0001-81","senha":"s3nha"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s3nha", svc.gotPassword)
}

func TestDriverUpdate(t *testing.T) {
	t.Run("token mismatch", func(t *testing.T) {
		h := newTestHandler(t, &stubService{err: policy.ErrDriverTokenMismatch})

		rec := do(t, h, http.MethodPost, "/api/driver/update",
			`{"numeroEncomenda":"OC-1001","token":"nope","status":"COLETADO","localizacao":"Rua Ana"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid status", func(t *testing.T) {
		h := newTestHandler(t, &stubService{err: service.ErrInvalidStatus})

		rec := do(t, h, http.MethodPost, "/api/driver/update",
			`{"numeroEncomenda":"OC-1001","token":"cafebabe","status":"X","localizacao":"Rua Ana"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		h := newTestHandler(t, &stubService{})

		rec := do(t, h, http.MethodPost, "/api/driver/update",
			`{"numeroEncomenda":"OC-1001","token":"cafebabe","status":"COLETADO","localizacao":"Rua Ana"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMyShipments_StaffForbidden(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, http.MethodGet, "/api/cliente/minhas-coletas", "", tokenFor(t, h, staffID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMyShipments_Client(t *testing.T) {
	svc := &stubService{shipments: []model.Shipment{*sampleShipment()}}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodGet, "/api/cliente/minhas-coletas", "", tokenFor(t, h, clientID))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]any
	decodeBody(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.NotContains(t, resp[0], "driverToken")
	require.NotNil(t, svc.gotIdentity)
	assert.Equal(t, "529.982.247-25", svc.gotIdentity.TaxID)
}

func TestMyShipments_EmptyListIsArray(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, http.MethodGet, "/api/cliente/minhas-coletas", "", tokenFor(t, h, clientID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, http.MethodGet, "/api/admin/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/stats", "", tokenFor(t, h, clientID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListShipments(t *testing.T) {
	svc := &stubService{page: &model.ShipmentPage{
		Shipments:   []model.Shipment{*sampleShipment()},
		TotalCount:  11,
		PageSize:    model.PageSize,
		CurrentPage: 2,
		TotalPages:  2,
	}}
	h := newTestHandler(t, svc)
	token := tokenFor(t, h, staffID)

	rec := do(t, h, http.MethodGet, "/api/admin/coletas?status=EM_TRANSITO&search=gabi&page=2", "", token)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ShipmentFilter{Status: model.StatusInTransit, Search: "gabi", Page: 2}, svc.gotFilter)

	var resp struct {
		Shipments  []map[string]any   `json:"coletas"`
		Pagination paginationResponse `json:"pagination"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Shipments, 1)
	assert.Equal(t, "cafebabe", resp.Shipments[0]["driverToken"])
	assert.Equal(t, paginationResponse{TotalCount: 11, PageSize: 10, CurrentPage: 2, TotalPages: 2}, resp.Pagination)

	rec = do(t, h, http.MethodGet, "/api/admin/coletas?page=abc", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateShipment_DueDate(t *testing.T) {
	svc := &stubService{shipment: sampleShipment()}
	h := newTestHandler(t, svc)
	token := tokenFor(t, h, staffID)

	rec := do(t, h, http.MethodPut, "/api/admin/coletas/1",
		`{"dataVencimento":null,"statusPagamento":"PAGO","status":"CONCLUIDA"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotUpdate.ClearDueDate)
	require.NotNil(t, svc.gotUpdate.PaymentStatus)
	assert.Equal(t, model.PaymentPaid, *svc.gotUpdate.PaymentStatus)

	rec = do(t, h, http.MethodPut, "/api/admin/coletas/1", `{"valorFrete":"99.90"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.gotUpdate.ClearDueDate)
	require.NotNil(t, svc.gotUpdate.FreightValue)
	assert.Equal(t, "99.9", svc.gotUpdate.FreightValue.String())

	rec = do(t, h, http.MethodPut, "/api/admin/coletas/abc", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateShipment_Weight(t *testing.T) {
	svc := &stubService{shipment: sampleShipment()}
	h := newTestHandler(t, svc)
	token := tokenFor(t, h, staffID)

	rec := do(t, h, http.MethodPut, "/api/admin/coletas/1", `{"pesoKg":null}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotUpdate.ClearWeight)
	assert.Nil(t, svc.gotUpdate.WeightKg)

	rec = do(t, h, http.MethodPut, "/api/admin/coletas/1", `{"pesoKg":"7.5"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.gotUpdate.ClearWeight)
	require.NotNil(t, svc.gotUpdate.WeightKg)
	assert.Equal(t, 7.5, *svc.gotUpdate.WeightKg)

	rec = do(t, h, http.MethodPut, "/api/admin/coletas/1", `{"nomeCliente":"Gabriela"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.gotUpdate.ClearWeight)
	assert.Nil(t, svc.gotUpdate.WeightKg)

	rec = do(t, h, http.MethodPut, "/api/admin/coletas/1", `{"pesoKg":"pesado"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppendHistory(t *testing.T) {
	svc := &stubService{shipment: sampleShipment()}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPost, "/api/admin/coletas/482913/historico",
		`{"status":"EM_TRANSITO","localizacao":"Hub X"}`, tokenFor(t, h, staffID))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.RoleAdmin, svc.gotIdentity.Role)
}

func TestDeleteShipment_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{err: fmt.Errorf("shipment %w", model.ErrNotFound)})

	rec := do(t, h, http.MethodDelete, "/api/admin/coletas/5", "", tokenFor(t, h, staffID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	h := newTestHandler(t, &stubService{stats: &model.Stats{
		StatusCounts: map[model.ShipmentStatus]int{model.StatusCompleted: 2, model.StatusPending: 1},
		TotalRevenue: decimal.RequireFromString("199.90"),
		MonthlyCount: 3,
	}})

	rec := do(t, h, http.MethodGet, "/api/admin/stats", "", tokenFor(t, h, staffID))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 199.9, resp.TotalRevenue)
	assert.Equal(t, 3, resp.MonthlyCount)
	assert.Equal(t, 2, resp.StatusCounts[model.StatusCompleted])
}

func TestClientLogin(t *testing.T) {
	h := newTestHandler(t, &stubService{err: service.ErrInvalidCredentials})
	rec := do(t, h, http.MethodPost, "/api/cliente/login", `{"cpfCnpj":"529.982.247-25","senha":"errada"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token\"")

	h = newTestHandler(t, &stubService{token: "signed"})
	rec = do(t, h, http.MethodPost, "/api/cliente/login", `{"cpfCnpj":"529.982.247-25","senha":"s3nha"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp tokenResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "signed", resp.Token)
}

func TestClientRegister(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	rec := do(t, h, http.MethodPost, "/api/cliente/cadastro",
		`{"cpfCnpj":"529.982.247-25","senha":"s3nha","nome":"Gabriela"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "senha")

	h = newTestHandler(t, &stubService{err: fmt.Errorf("%w: tax id already registered", model.ErrConflict)})
	rec = do(t, h, http.MethodPost, "/api/cliente/cadastro", `{"cpfCnpj":"529.982.247-25","senha":"s3nha"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListEmployees_NoHashes(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, http.MethodGet, "/api/admin/funcionarios", "", tokenFor(t, h, staffID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hash")
	assert.Contains(t, rec.Body.String(), `"nome":"Ana"`)
}

func TestRequestReturn(t *testing.T) {
	sh := sampleShipment()
	sh.Status = model.StatusInReturn
	h := newTestHandler(t, &stubService{shipment: sh})

	rec := do(t, h, http.MethodPost, "/api/devolucao/solicitar",
		`{"numeroNFOriginal":"482913","nomeCliente":"G","emailCliente":"g@example.com","motivoDevolucao":"Avaria"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp returnCreatedResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(9), resp.RequestID)
	assert.Equal(t, model.StatusInReturn, resp.Shipment.Status)
}

func TestRejectReturn(t *testing.T) {
	reason := "Fora do prazo"
	svc := &stubService{returnReq: &model.ReturnRequest{ID: 9, Status: model.ReturnRejected, RejectionReason: &reason}}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPut, "/api/admin/devolucoes/482913/rejeitar",
		`{"motivoRejeicao":"Fora do prazo"}`, tokenFor(t, h, staffID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fora do prazo", svc.gotReason)

	var resp returnResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, model.ReturnRejected, resp.Status)
}

func TestInvoicePDF(t *testing.T) {
	h := newTestHandler(t, &stubService{shipment: sampleShipment()})

	rec := do(t, h, http.MethodGet, "/api/fatura/482913", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=fatura_482913.pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestLabelPDF_QuotedFilename(t *testing.T) {
	sh := sampleShipment()
	sh.InvoiceNumber = "NF 12;3"
	h := newTestHandler(t, &stubService{shipment: sh})

	rec := do(t, h, http.MethodGet, "/api/etiqueta/NF%2012%3B3", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	disposition := rec.Header().Get("Content-Disposition")
	assert.Equal(t, `attachment; filename="etiqueta_NF 12;3.pdf"`, disposition)

	_, params, err := mime.ParseMediaType(disposition)
	require.NoError(t, err)
	assert.Equal(t, "etiqueta_NF 12;3.pdf", params["filename"])
}

func TestMetricsEndpoint_SingleGzip(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.SetupRouter(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	text, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(text), "# HELP")
	assert.NotEqual(t, []byte{0x1f, 0x8b}, text[:2])
}

func TestLabelPDF_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{shipmentErr: fmt.Errorf("shipment %w", model.ErrNotFound)})

	rec := do(t, h, http.MethodGet, "/api/etiqueta/000", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, http.MethodGet, "/api/nao-existe", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
