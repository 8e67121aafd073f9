package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/coletas-service/internal/metrics"
	"github.com/mmeshcher/coletas-service/internal/model"
	"github.com/mmeshcher/coletas-service/internal/repository"
	"github.com/mmeshcher/coletas-service/internal/validation"
)

// Ошибки входа и регистрации.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", model.ErrUnauthenticated)
	ErrInvalidTaxID       = fmt.Errorf("%w: invalid CPF/CNPJ", model.ErrValidation)
)

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func checkPassword(hash []byte, password string) bool {
	return len(hash) > 0 && bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// LoginStaff проверяет e-mail и пароль сотрудника и выпускает токен с ролью admin.
func (s *Service) LoginStaff(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and senha are required", model.ErrValidation)
	}

	e, err := s.repo.GetEmployeeByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			metrics.LoginFailuresTotal.WithLabelValues(string(model.RoleAdmin)).Inc()
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !checkPassword(e.PasswordHash, password) {
		metrics.LoginFailuresTotal.WithLabelValues(string(model.RoleAdmin)).Inc()
		return "", ErrInvalidCredentials
	}

	return s.tokens.IssueToken(&model.Identity{
		ID:    e.ID,
		Role:  model.RoleAdmin,
		Email: e.Email,
	})
}

// LoginClient проверяет CPF/CNPJ и пароль клиента и выпускает токен с ролью cliente.
func (s *Service) LoginClient(ctx context.Context, taxID, password string) (string, error) {
	if taxID == "" || password == "" {
		return "", fmt.Errorf("%w: cpfCnpj and senha are required", model.ErrValidation)
	}

	c, err := s.repo.GetClientByTaxID(ctx, taxID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			metrics.LoginFailuresTotal.WithLabelValues(string(model.RoleClient)).Inc()
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !checkPassword(c.PasswordHash, password) {
		metrics.LoginFailuresTotal.WithLabelValues(string(model.RoleClient)).Inc()
		return "", ErrInvalidCredentials
	}

	return s.tokens.IssueToken(&model.Identity{
		ID:    c.ID,
		Role:  model.RoleClient,
		Email: c.Email,
		TaxID: c.TaxID,
	})
}

// RegisterClient регистрирует клиента по его собственной заявке.
func (s *Service) RegisterClient(ctx context.Context, c *model.Client, password string) error {
	c.TaxID = strings.TrimSpace(c.TaxID)
	if c.TaxID == "" || password == "" {
		return fmt.Errorf("%w: cpfCnpj and senha are required", model.ErrValidation)
	}
	if !validation.IsValidTaxID(c.TaxID) {
		return ErrInvalidTaxID
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	c.PasswordHash = hash

	if err := s.repo.CreateClient(ctx, c); err != nil {
		return err
	}
	c.PasswordHash = nil
	return nil
}

// EnsureAdmin создаёт учётную запись сотрудника, если её ещё нет.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if _, err := s.repo.GetEmployeeByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrEmployeeNotFound) {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	e := &model.Employee{Email: email, Name: name, PasswordHash: hash}
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		if errors.Is(err, repository.ErrEmployeeExists) {
			return nil
		}
		return err
	}

	s.logger.Info("bootstrap admin created", zap.Int64("employee_id", e.ID), zap.String("email", email))
	return nil
}
