package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// ListEmployees возвращает список сотрудников.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListEmployees(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := make([]employeeResponse, 0, len(list))
	for i := range list {
		res = append(res, toEmployeeResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateEmployee заводит сотрудника.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.service.CreateEmployee(r.Context(), identity(r), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeResponse(e))
}

// UpdateEmployee меняет данные сотрудника.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req employeeUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.service.UpdateEmployee(r.Context(), identity(r), id, req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, zap.Int64("employee_id", id))
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(e))
}

// DeleteEmployee удаляет сотрудника.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteEmployee(r.Context(), identity(r), id); err != nil {
		h.writeError(w, r, err, zap.Int64("employee_id", id))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Funcionário excluído com sucesso."})
}

// CreateClient заводит клиента без пароля.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c := &model.Client{TaxID: req.TaxID, Name: req.Name, Email: req.Email}
	if err := h.service.CreateClient(r.Context(), identity(r), c); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toClientResponse(c))
}

// ListClients возвращает список клиентов.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListClients(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := make([]clientResponse, 0, len(list))
	for i := range list {
		res = append(res, toClientResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, res)
}

// UpdateClient меняет данные клиента.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req clientUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.service.UpdateClient(r.Context(), identity(r), id, model.ClientUpdate{
		Name:  req.Name,
		Email: req.Email,
		TaxID: req.TaxID,
	}, req.NewPassword)
	if err != nil {
		h.writeError(w, r, err, zap.Int64("client_id", id))
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(c))
}
