package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coletas-service/internal/cache"
	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/repository"
)

// memRepo хранилище в памяти с той же семантикой ошибок, что и PostgresRepository.
type memRepo struct {
	mu sync.Mutex

	now func() time.Time

	shipments map[int64]*model.Shipment
	history   map[int64][]model.HistoryEntry
	returns   []model.ReturnRequest
	employees map[int64]*model.Employee
	clients   map[int64]*model.Client

	nextID        int64
	appendErr     error
	appendCalls   int
	createRetErr  error
	createShipErr error

	// beforeGetHistory вызывается вне блокировки перед чтением истории.
	beforeGetHistory func()
}

func newMemRepo() *memRepo {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	return &memRepo{
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		},
		shipments: make(map[int64]*model.Shipment),
		history:   make(map[int64][]model.HistoryEntry),
		employees: make(map[int64]*model.Employee),
		clients:   make(map[int64]*model.Client),
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateShipment(ctx context.Context, s *model.Shipment, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createShipErr != nil {
		return m.createShipErr
	}
	for _, existing := range m.shipments {
		if existing.InvoiceNumber == s.InvoiceNumber {
			return repository.ErrInvoiceExists
		}
	}

	s.ID = m.id()
	s.OrderNumber = model.FormatOrderNumber(s.ID)
	s.Status = model.StatusPending
	s.PaymentStatus = model.PaymentPending
	s.CreatedAt = m.now()

	entry := model.HistoryEntry{ID: m.id(), ShipmentID: s.ID, Status: model.StatusPending, Location: location, RecordedAt: m.now()}
	m.history[s.ID] = []model.HistoryEntry{entry}
	s.History = []model.HistoryEntry{entry}

	stored := *s
	stored.History = nil
	m.shipments[s.ID] = &stored
	return nil
}

func (m *memRepo) find(match func(*model.Shipment) bool) (*model.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.shipments))
	for id := range m.shipments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if s := m.shipments[id]; match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrShipmentNotFound
}

func (m *memRepo) GetShipmentByID(ctx context.Context, id int64) (*model.Shipment, error) {
	return m.find(func(s *model.Shipment) bool { return s.ID == id })
}

func (m *memRepo) GetShipmentByOrderNumber(ctx context.Context, orderNumber string) (*model.Shipment, error) {
	return m.find(func(s *model.Shipment) bool { return s.OrderNumber == orderNumber })
}

func (m *memRepo) GetShipmentByInvoice(ctx context.Context, invoiceNumber string) (*model.Shipment, error) {
	return m.find(func(s *model.Shipment) bool { return s.InvoiceNumber == invoiceNumber })
}

func (m *memRepo) GetShipmentByOrderOrInvoice(ctx context.Context, ref string) (*model.Shipment, error) {
	if s, err := m.GetShipmentByOrderNumber(ctx, ref); err == nil {
		return s, nil
	}
	return m.GetShipmentByInvoice(ctx, ref)
}

func (m *memRepo) GetHistory(ctx context.Context, shipmentID int64) ([]model.HistoryEntry, error) {
	if hook := m.beforeGetHistory; hook != nil {
		m.beforeGetHistory = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyLocked(shipmentID), nil
}

func (m *memRepo) historyLocked(shipmentID int64) []model.HistoryEntry {
	entries := m.history[shipmentID]
	res := make([]model.HistoryEntry, len(entries))
	for i, e := range entries {
		res[len(entries)-1-i] = e
	}
	return res
}

func (m *memRepo) AppendStatus(ctx context.Context, shipmentID int64, status model.ShipmentStatus, location string) (*model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendCalls++
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	s, ok := m.shipments[shipmentID]
	if !ok {
		return nil, repository.ErrShipmentNotFound
	}

	s.Status = status
	entry := model.HistoryEntry{ID: m.id(), ShipmentID: shipmentID, Status: status, Location: location, RecordedAt: m.now()}
	m.history[shipmentID] = append(m.history[shipmentID], entry)
	return &entry, nil
}

func (m *memRepo) ListShipments(ctx context.Context, f model.ShipmentFilter) (*model.ShipmentPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []model.Shipment
	for _, s := range m.shipments {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(s.OrderNumber), q) &&
				!strings.Contains(strings.ToLower(s.InvoiceNumber), q) &&
				!strings.Contains(strings.ToLower(s.ClientName), q) &&
				!strings.Contains(strings.ToLower(s.RecipientTaxID), q) {
				continue
			}
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * model.PageSize
	end := start + model.PageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	return &model.ShipmentPage{
		Shipments:   all[start:end],
		TotalCount:  len(all),
		PageSize:    model.PageSize,
		CurrentPage: page,
		TotalPages:  model.TotalPages(len(all), model.PageSize),
	}, nil
}

func (m *memRepo) ListShipmentsByTaxID(ctx context.Context, taxID string) ([]model.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Shipment
	for _, s := range m.shipments {
		if s.SenderTaxID == taxID || s.RecipientTaxID == taxID {
			cp := *s
			cp.History = m.historyLocked(s.ID)
			res = append(res, cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (m *memRepo) UpdateShipment(ctx context.Context, id int64, u model.ShipmentUpdate) (*model.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[id]
	if !ok {
		return nil, repository.ErrShipmentNotFound
	}
	if u.ClientName != nil {
		s.ClientName = *u.ClientName
	}
	if u.InvoiceNumber != nil {
		s.InvoiceNumber = *u.InvoiceNumber
	}
	if u.FreightValue != nil {
		s.FreightValue = *u.FreightValue
	}
	if u.PaymentStatus != nil {
		s.PaymentStatus = *u.PaymentStatus
	}
	if u.ClearWeight {
		s.WeightKg = nil
	} else if u.WeightKg != nil {
		w := *u.WeightKg
		s.WeightKg = &w
	}
	if u.ClearDueDate {
		s.DueDate = nil
	} else if u.DueDate != nil {
		s.DueDate = u.DueDate
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) DeleteShipment(ctx context.Context, id int64) (*model.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[id]
	if !ok {
		return nil, repository.ErrShipmentNotFound
	}
	delete(m.shipments, id)
	delete(m.history, id)
	return s, nil
}

func (m *memRepo) Stats(ctx context.Context) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &model.Stats{StatusCounts: make(map[model.ShipmentStatus]int)}
	for _, st := range model.AllStatuses {
		stats.StatusCounts[st] = 0
	}
	stats.TotalRevenue = decimal.Zero
	for _, s := range m.shipments {
		stats.StatusCounts[s.Status]++
		if s.Status == model.StatusCompleted {
			stats.TotalRevenue = stats.TotalRevenue.Add(s.FreightValue)
		}
		stats.MonthlyCount++
	}
	return stats, nil
}

func (m *memRepo) CreateReturnRequest(ctx context.Context, rr *model.ReturnRequest, location string) (*model.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createRetErr != nil {
		return nil, m.createRetErr
	}

	var target *model.Shipment
	for _, s := range m.shipments {
		if s.InvoiceNumber == rr.InvoiceNumber {
			target = s
		}
	}
	if target == nil {
		return nil, repository.ErrShipmentNotFound
	}
	if !target.Status.AllowsReturn() {
		return nil, repository.ErrReturnNotAllowed
	}

	rr.ID = m.id()
	rr.Status = model.ReturnPending
	rr.RequestedAt = m.now()
	m.returns = append(m.returns, *rr)

	target.Status = model.StatusInReturn
	m.history[target.ID] = append(m.history[target.ID], model.HistoryEntry{
		ID: m.id(), ShipmentID: target.ID, Status: model.StatusInReturn, Location: location, RecordedAt: m.now(),
	})

	cp := *target
	return &cp, nil
}

func (m *memRepo) ListReturnRequests(ctx context.Context) ([]model.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]model.ReturnRequest, len(m.returns))
	for i, rr := range m.returns {
		res[len(m.returns)-1-i] = rr
	}
	return res, nil
}

func (m *memRepo) ResolveLatestReturn(ctx context.Context, invoiceNumber string, status model.ReturnStatus, rejectionReason *string) (*model.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.returns) - 1; i >= 0; i-- {
		if m.returns[i].InvoiceNumber == invoiceNumber {
			m.returns[i].Status = status
			m.returns[i].RejectionReason = rejectionReason
			cp := m.returns[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrReturnNotFound
}

func (m *memRepo) CreateEmployee(ctx context.Context, e *model.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.employees {
		if existing.Email == e.Email {
			return repository.ErrEmployeeExists
		}
	}
	e.ID = m.id()
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m *memRepo) GetEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.employees {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrEmployeeNotFound
}

func (m *memRepo) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Employee
	for _, e := range m.employees {
		res = append(res, model.Employee{ID: e.ID, Email: e.Email, Name: e.Name})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *memRepo) UpdateEmployee(ctx context.Context, id int64, u model.EmployeeUpdate) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, repository.ErrEmployeeNotFound
	}
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Email != nil {
		e.Email = *u.Email
	}
	if u.PasswordHash != nil {
		e.PasswordHash = u.PasswordHash
	}
	return &model.Employee{ID: e.ID, Email: e.Email, Name: e.Name}, nil
}

func (m *memRepo) DeleteEmployee(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[id]; !ok {
		return repository.ErrEmployeeNotFound
	}
	delete(m.employees, id)
	return nil
}

func (m *memRepo) CreateClient(ctx context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.clients {
		if existing.TaxID == c.TaxID {
			return repository.ErrClientExists
		}
	}
	c.ID = m.id()
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memRepo) GetClientByTaxID(ctx context.Context, taxID string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clients {
		if c.TaxID == taxID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrClientNotFound
}

func (m *memRepo) ListClients(ctx context.Context) ([]model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Client
	for _, c := range m.clients {
		res = append(res, model.Client{ID: c.ID, TaxID: c.TaxID, Name: c.Name, Email: c.Email})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *memRepo) UpdateClient(ctx context.Context, id int64, u model.ClientUpdate) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, repository.ErrClientNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.TaxID != nil {
		c.TaxID = *u.TaxID
	}
	if u.PasswordHash != nil {
		c.PasswordHash = u.PasswordHash
	}
	return &model.Client{ID: c.ID, TaxID: c.TaxID, Name: c.Name, Email: c.Email}, nil
}

// memCache кэш в памяти с версиями ключей, как у RedisCache.
type memCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	versions map[string]int64
	getErr   error
	deleted  []string
}

func newMemCache() *memCache {
	return &memCache{
		entries:  make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, cacheMiss
	}
	return v, nil
}

func (c *memCache) Version(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.versions[key], nil
}

func (c *memCache) SetIfVersion(ctx context.Context, key string, version int64, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.versions[key] != version {
		return cache.ErrStale
	}
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.entries, k)
		c.versions[k]++
		c.deleted = append(c.deleted, k)
	}
	return nil
}

// stubIssuer выпускает предсказуемые токены вида "<role>:<id>".
type stubIssuer struct {
	issued []*model.Identity
}

func (s *stubIssuer) IssueToken(id *model.Identity) (string, error) {
	s.issued = append(s.issued, id)
	return string(id.Role) + ":" + id.TaxID + id.Email, nil
}
