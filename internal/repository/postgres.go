// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/coletas-service/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ошибки хранилища. Каждая относится к одной из категорий model.
var (
	// ErrShipmentNotFound возвращается, если груз не найден.
	ErrShipmentNotFound = fmt.Errorf("shipment %w", model.ErrNotFound)
	// ErrEmployeeNotFound возвращается, если сотрудник не найден.
	ErrEmployeeNotFound = fmt.Errorf("employee %w", model.ErrNotFound)
	// ErrClientNotFound возвращается, если клиент не найден.
	ErrClientNotFound = fmt.Errorf("client %w", model.ErrNotFound)
	// ErrReturnNotFound возвращается, если для накладной нет заявок на возврат.
	ErrReturnNotFound = fmt.Errorf("return request %w", model.ErrNotFound)
	// ErrInvoiceExists возвращается при повторном использовании номера накладной.
	ErrInvoiceExists = fmt.Errorf("%w: invoice number already registered", model.ErrConflict)
	// ErrEmployeeExists возвращается при повторном использовании e-mail сотрудника.
	ErrEmployeeExists = fmt.Errorf("%w: employee email already registered", model.ErrConflict)
	// ErrClientExists возвращается при повторном использовании CPF/CNPJ клиента.
	ErrClientExists = fmt.Errorf("%w: tax id already registered", model.ErrConflict)
	// ErrReturnNotAllowed возвращается, если статус груза не допускает возврата.
	ErrReturnNotAllowed = fmt.Errorf("%w: shipment must be completed to request a return", model.ErrValidation)
	// ErrInvalidValue возвращается, если значение нарушает ограничения колонки.
	ErrInvalidValue = fmt.Errorf("%w: value out of range", model.ErrValidation)
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликте сериализации, взаимоблокировке или обрыве соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil || !isRetryable(err) || i == len(r.delays) {
			return err
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// isRangeViolation сообщает о нарушении CHECK или переполнении числовой колонки.
func isRangeViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.CheckViolation || pgErr.Code == pgerrcode.NumericValueOutOfRange
}

// inTx выполняет fn в одной транзакции. Транзакция откатывается при любой ошибке fn.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// Ping проверяет доступность базы данных.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
