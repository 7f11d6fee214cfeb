package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type txKey struct{}

// Conn returns the transaction carried by ctx, or db when there is none.
// Repositories call it on every query so they join an open transaction.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// Serializable runs fn in a SERIALIZABLE transaction. A nested call joins the
// outer transaction. A serialization failure is reported as a conflict; it is
// not retried.
func (t *Transactor) Serializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return serializationConflict(err)
}

func serializationConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return apperrors.ConflictError{Msg: "concurrent update on the same resource, retry the request", Err: err}
	}
	return err
}
