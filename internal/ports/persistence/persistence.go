package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Persistence операции над БД, общие для пула и транзакции
type Persistence interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) error
	ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error)
	NamedExec(ctx context.Context, query string, arg interface{}) error
	NamedExecWithResult(ctx context.Context, query string, arg interface{}) (int64, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// Transaction транзакция поверх Persistence
type Transaction interface {
	Persistence
	Commit() error
	Rollback() error
}

// Transactor запуск функции в транзакции
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}
