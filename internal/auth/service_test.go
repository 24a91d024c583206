package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/affiliateops/backend/internal/models"
)

type memOperators struct {
	byEmail map[string]*models.Operator
}

func newMemOperators() *memOperators { return &memOperators{byEmail: make(map[string]*models.Operator)} }

func (m *memOperators) Create(_ context.Context, o *models.Operator) error {
	if _, ok := m.byEmail[o.Email]; ok {
		return ErrDuplicateEmail
	}
	m.byEmail[o.Email] = o
	return nil
}

func (m *memOperators) GetByEmail(_ context.Context, email string) (*models.Operator, error) {
	return m.byEmail[email], nil
}

func TestCreateOperatorLoginValidate(t *testing.T) {
	svc := NewService(newMemOperators(), "test-secret")
	ctx := context.Background()

	op, err := svc.CreateOperator(ctx, " Ops@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if op.Email != "ops@example.com" || op.PasswordHash == "correct horse" {
		t.Fatalf("unexpected operator %+v", op)
	}
	if _, err := svc.CreateOperator(ctx, "ops@example.com", "another password"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	token, err := svc.Login(ctx, "OPS@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, err := svc.ValidateToken(ctx, token)
	if err != nil || id != op.ID {
		t.Fatalf("ValidateToken = %s, %v", id, err)
	}

	if _, err := svc.Login(ctx, "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestValidateToken_RejectsOtherSecret(t *testing.T) {
	store := newMemOperators()
	issuer := NewService(store, "secret-a")
	if _, err := issuer.CreateOperator(context.Background(), "a@example.com", "password1"); err != nil {
		t.Fatal(err)
	}
	token, err := issuer.Login(context.Background(), "a@example.com", "password1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewService(store, "secret-b").ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCreateOperator_ShortPassword(t *testing.T) {
	if _, err := NewService(newMemOperators(), "s").CreateOperator(context.Background(), "a@example.com", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestLoginHandler(t *testing.T) {
	svc := NewService(newMemOperators(), "s")
	if _, err := svc.CreateOperator(context.Background(), "a@example.com", "password1"); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"password1"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
}

func TestLoginHandlerRejectsMalformedBody(t *testing.T) {
	h := NewHandler(NewService(newMemOperators(), "s"), nil)
	for _, body := range []string{``, `{"email":"a@example.com"}`, `{"email":"a@example.com","password":"x","role":"admin"}`} {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}
