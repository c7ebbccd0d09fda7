package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/pkg/apperror"
)

const testSecret = "test-secret"

func newAuthFixture(t *testing.T) (AuthService, repository.UserRepository) {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewUserRepository(db)
	return NewAuthService(repo, testSecret, time.Hour), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.AccessToken == "" {
		t.Fatalf("Register returned no token")
	}
	if registered.User.PasswordHash == "correct horse" {
		t.Fatalf("password stored in plaintext")
	}

	logged, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.User.Status != model.UserStatusOnline {
		t.Fatalf("status after login = %q, want online", logged.User.Status)
	}

	// The token subject identifies the user.
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(logged.AccessToken, claims, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != registered.User.ID.String() {
		t.Fatalf("token subject = %q, want %q", claims.Subject, registered.User.ID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	input := RegisterInput{Username: "alice", Email: "alice@example.com", Password: "correct horse"}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Register(ctx, input); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("duplicate username = %v, want ErrBadRequest", err)
	}

	input.Username = "alice2"
	if _, err := svc.Register(ctx, input); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("duplicate email = %v, want ErrBadRequest", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("wrong password = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Username: "nobody", Password: "x"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("unknown user = %v, want ErrUnauthorized", err)
	}
}

func TestLogoutSetsOffline(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, registered.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	user, err := repo.FindByID(ctx, registered.User.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if user.Status != model.UserStatusOffline {
		t.Fatalf("status after logout = %q, want offline", user.Status)
	}
}
