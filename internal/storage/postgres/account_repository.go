package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cybernerd/agriconnect/internal/domain"
)

type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository создаёт PostgreSQL-реализацию AccountRepository.
func NewAccountRepository(store *Store) domain.AccountRepository {
	return &accountRepository{db: store.DB()}
}

func (r *accountRepository) Create(account domain.Account) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		farmName sql.NullString
		region   sql.NullString
		verified bool
	)
	if account.Producer != nil {
		farmName = sql.NullString{String: account.Producer.FarmName, Valid: true}
		region = sql.NullString{String: account.Producer.Region, Valid: true}
		verified = account.Producer.Verified
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, name, role, farm_name, region, verified, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		account.ID, account.Email, account.Name, string(account.Role),
		farmName, region, verified, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

func (r *accountRepository) Get(id string) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		account  domain.Account
		role     string
		farmName sql.NullString
		region   sql.NullString
		verified bool
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, farm_name, region, verified, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(
		&account.ID, &account.Email, &account.Name, &role,
		&farmName, &region, &verified, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("select account: %w", err)
	}

	account.Role = domain.Role(role)
	if account.Role == domain.RoleProducer {
		account.Producer = &domain.ProducerProfile{
			FarmName: farmName.String,
			Region:   region.String,
			Verified: verified,
		}
	}

	return account, nil
}

var _ domain.AccountRepository = (*accountRepository)(nil)
