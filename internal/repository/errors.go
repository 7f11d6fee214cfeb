// Package repository wraps gorm queries per entity and turns storage errors
// into apperrors values.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func translate(resource string, id any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFoundError{Resource: resource, ID: id}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return apperrors.ConflictError{Resource: resource, Msg: "duplicate " + uniqueField(pgErr), Err: err}
	case "23503":
		if strings.HasPrefix(pgErr.Message, "update or delete") {
			return apperrors.ConflictError{Resource: resource, Msg: "still referenced by " + pgErr.TableName, Err: err}
		}
		return apperrors.ConflictError{Resource: resource, Msg: "references a missing record", Err: err}
	case "40001":
		return apperrors.ConflictError{Resource: resource, Msg: "concurrent update, retry the request", Err: err}
	case "23514":
		return apperrors.Invalid(pgErr.ConstraintName, "violates check constraint")
	}
	return err
}

// uniqueField turns gorm's index names (idx_<table>_<column>) into the column.
func uniqueField(pgErr *pgconn.PgError) string {
	name := pgErr.ConstraintName
	prefix := "idx_" + pgErr.TableName + "_"
	if pgErr.TableName != "" && strings.HasPrefix(name, prefix) {
		return strings.TrimPrefix(name, prefix)
	}
	if name == "" {
		return "value"
	}
	return name
}

func getByID(ctx context.Context, db *gorm.DB, dest any, resource string, id uint) error {
	return translate(resource, id, database.Conn(ctx, db).First(dest, id).Error)
}

func deleteByID(ctx context.Context, db *gorm.DB, model any, resource string, id uint) error {
	res := database.Conn(ctx, db).Delete(model, id)
	if res.Error != nil {
		return translate(resource, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
