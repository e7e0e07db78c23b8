package credentials

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the persistence surface for credential records. It satisfies
// CredentialStore; callers outside this package reach accounts through that
// interface only.
type Accounts interface {
	repository.Repository[*Account]

	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	AtomicUpdate(ctx context.Context, id uuid.UUID, mutator func(*Account) error) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return a.FindByUsernameTx(ctx, a.db, username)
}

func (a *accounts) FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error) {
	return a.findByColumn(ctx, tx, "username", NormalizeIdentifier(username))
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.findByColumn(ctx, tx, "email", NormalizeIdentifier(email))
}

func (a *accounts) findByColumn(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	if value == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"column": column,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account record")
	}

	return created, nil
}

// AtomicUpdate re-reads the record inside a transaction, applies the mutator,
// and persists the result, so read-check-mutate sequences (lockout counters,
// token consumption) never lose updates under concurrent requests.
func (a *accounts) AtomicUpdate(ctx context.Context, id uuid.UUID, mutator func(*Account) error) (*Account, error) {
	var updated *Account

	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &Account{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return repository.NewRecordNotFound().
					WithMetadata(map[string]any{
						"id": id.String(),
					})
			}
			return err
		}

		working := record.Clone()
		if err := mutator(working); err != nil {
			return err
		}

		if _, err := a.Repository.UpdateTx(ctx, tx, working, repository.UpdateByID(id.String())); err != nil {
			return err
		}

		updated = working
		return nil
	})

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// NewCredentialStore adapts the accounts repository to the CredentialStore
// surface the Manager consumes.
func NewCredentialStore(repo Accounts) CredentialStore {
	return &storeAdapter{accounts: repo}
}

type storeAdapter struct {
	accounts Accounts
}

func (s *storeAdapter) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return s.accounts.FindByUsername(ctx, username)
}

func (s *storeAdapter) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.accounts.FindByEmail(ctx, email)
}

func (s *storeAdapter) Create(ctx context.Context, account *Account) (*Account, error) {
	return s.accounts.Create(ctx, account)
}

func (s *storeAdapter) AtomicUpdate(ctx context.Context, id uuid.UUID, mutator func(*Account) error) (*Account, error) {
	return s.accounts.AtomicUpdate(ctx, id, mutator)
}

var _ CredentialStore = (*storeAdapter)(nil)

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Username = NormalizeIdentifier(record.Username)
	record.Email = NormalizeIdentifier(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
