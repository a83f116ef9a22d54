package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stockflow/internal/domain"
)

// Querier subconjunto común de *pgxpool.Pool y pgx.Tx para que los repositorios sirvan con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isTransient indica contención que se resuelve reintentando:
// 40001 serialization_failure, 40P01 deadlock_detected, 55P03 lock_not_available (lock_timeout).
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}

// classify marca como domain.ErrTransient los errores de contención; el resto pasa igual.
func classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrTransient) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}

// nullableHolder convierte el holder de dominio a NULL para la bodega central.
func nullableHolder(holderID string) *string {
	if holderID == "" {
		return nil
	}
	return &holderID
}

func holderFromNull(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
