package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	txMaxAttempts   = 3
	txBaseBackoff   = 50 * time.Millisecond
	opTimeout       = 5 * time.Second
	uniqueViolation = "23505"
)

// errClass разделяет ошибки PostgreSQL на повторяемые и постоянные.
type errClass int

const (
	errClassUnknown errClass = iota
	errClassRetryable
	errClassPermanent
)

// classifyError относит ошибку драйвера к классу. Повторяемы сбои
// сериализации, дедлоки и нехватка ресурсов; нарушения ограничений
// постоянны и повтор не помогут.
func classifyError(err error) errClass {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return errClassUnknown
	}

	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return errClassRetryable
	case uniqueViolation, "23503", "23502", "23514":
		return errClassPermanent
	}
	return errClassUnknown
}

func isRetryable(err error) bool {
	return classifyError(err) == errClassRetryable
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// constraintName возвращает имя нарушенного ограничения, если драйвер его
// сообщил.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// withTransaction выполняет fn в одной транзакции. Паника приводит к
// rollback и пробрасывается дальше.
func withTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// withRetry повторяет транзакцию при повторяемых ошибках с экспоненциальной
// задержкой и небольшим джиттером, чтобы конкурирующие транзакции не
// сталкивались повторно в такт.
func withRetry(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	backoff := txBaseBackoff

	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = withTransaction(ctx, db, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt == txMaxAttempts {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", txMaxAttempts, err)
}
