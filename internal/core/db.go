package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by the services.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxDB extends DB with transactions. *pgxpool.Pool satisfies it, and
// pgx.Tx itself satisfies DB, so statement helpers run on either.
type TxDB interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}
