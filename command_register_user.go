package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      UserRole
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates a user inside a transaction, translating
// unique-email violations, racing registrations included, to ErrEmailTaken.
type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = NormalizeEmail(event.Email)
		user.FullName = event.FullName
		user.Role = event.Role
		user.IsActive = true
		if event.UseHashid {
			if id, err := hashid.NewUUID(user.Email); err == nil {
				user.ID = id
			}
		}

		if existing, err := h.repo.Users().GetByEmailTx(ctx, tx, user.Email); err == nil && existing != nil {
			return ErrEmailTaken
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

// RegisterUser satisfies AccountRegistrerer
func (h *RegisterUserHandler) RegisterUser(ctx context.Context, fullName, email, password string) (*User, error) {
	return h.Execute(ctx, RegisterUserMessage{
		FullName: fullName,
		Email:    email,
		Password: password,
		Role:     RoleAgent,
	})
}

// isUniqueViolation matches the driver specific unique constraint
// errors for sqlite and postgres
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

var _ AccountRegistrerer = (*RegisterUserHandler)(nil)
