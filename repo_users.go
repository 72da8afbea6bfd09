package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var markEmailVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."email" = ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	MarkEmailVerified(ctx context.Context, email string) error
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, email string) error

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) MarkEmailVerified(ctx context.Context, email string) error {
	return a.MarkEmailVerifiedTx(ctx, a.db, email)
}

func (a *users) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, email string) error {
	res, err := a.Repository.RawTx(ctx, tx, markEmailVerifiedSQL, NormalizeEmail(email))
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"email": NormalizeEmail(email),
			})
	}

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: Updating using the ORM fails due to a bug, it wont reset
	// login_attempt_at, login_attempts fields.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleAgent
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
