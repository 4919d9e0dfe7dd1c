package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/jmoiron/sqlx"
)

// содержит общие методы для sqlx.DB и sqlx.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// WithinTransaction runs function within transaction
//
// The transaction commits when function were finished without error.
// If ctx already carries a transaction, the function joins it.
func (p *Postgres) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) (err error) {
	if p.extractTx(ctx) != nil {
		return tFunc(ctx)
	}

	rqID := utils.GetRequestIDFromCtx(ctx)

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("failed to rollback transaction", slog.String("rqID", rqID), slog.String("err", rbErr.Error()))
			}
		}
	}()

	err = tFunc(p.injectTx(ctx, tx))
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// injectTx injects transaction to context
func (p *Postgres) injectTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// extractTx extracts transaction from context
func (p *Postgres) extractTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// txOrDb returns a Querier interface that will use an existing transaction from the context if present,
// otherwise falls back to the provided database connection.
func (p *Postgres) txOrDb(ctx context.Context) Querier {
	if tx := p.extractTx(ctx); tx != nil {
		return tx
	}
	return p.db
}
