package handler

import (
	"net/http"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// StaffLogin выпускает токен сотруднику.
func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req staffLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.service.LoginStaff(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Message: "Login com sucesso!", Token: token})
}

// ClientLogin выпускает токен клиенту.
func (h *Handler) ClientLogin(w http.ResponseWriter, r *http.Request) {
	var req clientLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.service.LoginClient(r.Context(), req.TaxID, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// ClientRegister регистрирует клиента по его заявке.
func (h *Handler) ClientRegister(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c := &model.Client{TaxID: req.TaxID, Name: req.Name, Email: req.Email}
	if err := h.service.RegisterClient(r.Context(), c, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerClientResponse{
		Message: "Cadastro realizado com sucesso. Por favor, faça login.",
		Client:  toClientResponse(c),
	})
}
