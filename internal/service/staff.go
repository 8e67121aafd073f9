package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/policy"
	"github.com/mmeshcher/coletas-service/internal/validation"
)

// ListEmployees возвращает сотрудников по алфавиту.
func (s *Service) ListEmployees(ctx context.Context, id *model.Identity) ([]model.Employee, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

// CreateEmployee заводит нового сотрудника.
func (s *Service) CreateEmployee(ctx context.Context, id *model.Identity, email, password, name string) (*model.Employee, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, senha and nome are required", model.ErrValidation)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	e := &model.Employee{Email: email, Name: name, PasswordHash: hash}
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}
	e.PasswordHash = nil
	return e, nil
}

// UpdateEmployee меняет имя, e-mail и, если передан, пароль сотрудника.
func (s *Service) UpdateEmployee(ctx context.Context, id *model.Identity, employeeID int64, name, email *string, password string) (*model.Employee, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	if email != nil && strings.TrimSpace(*email) == "" {
		return nil, required("email")
	}

	u := model.EmployeeUpdate{Name: name, Email: email}
	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	return s.repo.UpdateEmployee(ctx, employeeID, u)
}

// DeleteEmployee удаляет сотрудника.
func (s *Service) DeleteEmployee(ctx context.Context, id *model.Identity, employeeID int64) error {
	if err := policy.RequireStaff(id); err != nil {
		return err
	}
	return s.repo.DeleteEmployee(ctx, employeeID)
}

// CreateClient заводит клиента от имени сотрудника. Пароль клиент задаёт позже.
func (s *Service) CreateClient(ctx context.Context, id *model.Identity, c *model.Client) error {
	if err := policy.RequireStaff(id); err != nil {
		return err
	}
	c.TaxID = strings.TrimSpace(c.TaxID)
	if c.TaxID == "" {
		return required("cpfCnpj")
	}
	if !validation.IsValidTaxID(c.TaxID) {
		return ErrInvalidTaxID
	}

	c.PasswordHash = nil
	return s.repo.CreateClient(ctx, c)
}

// ListClients возвращает клиентов в порядке регистрации.
func (s *Service) ListClients(ctx context.Context, id *model.Identity) ([]model.Client, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	return s.repo.ListClients(ctx)
}

// UpdateClient меняет данные клиента и, если передан, его пароль.
func (s *Service) UpdateClient(ctx context.Context, id *model.Identity, clientID int64, u model.ClientUpdate, newPassword string) (*model.Client, error) {
	if err := policy.RequireStaff(id); err != nil {
		return nil, err
	}
	if u.TaxID != nil {
		trimmed := strings.TrimSpace(*u.TaxID)
		if !validation.IsValidTaxID(trimmed) {
			return nil, ErrInvalidTaxID
		}
		u.TaxID = &trimmed
	}

	u.PasswordHash = nil
	if newPassword != "" {
		hash, err := hashPassword(newPassword)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	return s.repo.UpdateClient(ctx, clientID, u)
}
