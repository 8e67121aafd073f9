package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/coletas-service/internal/model"
)

// CreateEmployee создаёт сотрудника.
func (r *PostgresRepository) CreateEmployee(ctx context.Context, e *model.Employee) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employees (email, name, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		e.Email, e.Name, e.PasswordHash,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrEmployeeExists, e.Email)
		}
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// GetEmployeeByEmail возвращает сотрудника по e-mail вместе с хешем пароля.
func (r *PostgresRepository) GetEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error) {
	var e model.Employee
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash FROM employees WHERE email = $1`,
		email,
	).Scan(&e.ID, &e.Email, &e.Name, &e.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}

// ListEmployees возвращает сотрудников по алфавиту без хешей паролей.
func (r *PostgresRepository) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name FROM employees ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select employees: %w", err)
	}
	defer rows.Close()

	var res []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.Email, &e.Name); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateEmployee обновляет переданные поля сотрудника.
func (r *PostgresRepository) UpdateEmployee(ctx context.Context, id int64, u model.EmployeeUpdate) (*model.Employee, error) {
	var e model.Employee
	err := r.pool.QueryRow(ctx,
		`UPDATE employees SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash)
		 WHERE id = $1
		 RETURNING id, email, name`,
		id, u.Name, u.Email, u.PasswordHash,
	).Scan(&e.ID, &e.Email, &e.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrEmployeeExists
		}
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return &e, nil
}

// DeleteEmployee удаляет сотрудника.
func (r *PostgresRepository) DeleteEmployee(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// CreateClient регистрирует клиента. Хеш пароля может отсутствовать,
// если клиента заводит сотрудник.
func (r *PostgresRepository) CreateClient(ctx context.Context, c *model.Client) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clients (tax_id, name, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.TaxID, c.Name, c.Email, c.PasswordHash,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrClientExists, c.TaxID)
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// GetClientByTaxID возвращает клиента по CPF/CNPJ вместе с хешем пароля.
func (r *PostgresRepository) GetClientByTaxID(ctx context.Context, taxID string) (*model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, tax_id, name, email, password_hash FROM clients WHERE tax_id = $1`,
		taxID,
	).Scan(&c.ID, &c.TaxID, &c.Name, &c.Email, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// ListClients возвращает клиентов в порядке регистрации без хешей паролей.
func (r *PostgresRepository) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tax_id, name, email FROM clients ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select clients: %w", err)
	}
	defer rows.Close()

	var res []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.TaxID, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateClient обновляет переданные поля клиента.
func (r *PostgresRepository) UpdateClient(ctx context.Context, id int64, u model.ClientUpdate) (*model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx,
		`UPDATE clients SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			tax_id = COALESCE($4, tax_id),
			password_hash = COALESCE($5, password_hash)
		 WHERE id = $1
		 RETURNING id, tax_id, name, email`,
		id, u.Name, u.Email, u.TaxID, u.PasswordHash,
	).Scan(&c.ID, &c.TaxID, &c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrClientExists
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return &c, nil
}
