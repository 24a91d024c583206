// Package auth issues and validates operator tokens for the admin API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/affiliateops/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned when creating an operator whose email exists.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	roleOperator  = "operator"
	tokenLifetime = 24 * time.Hour
	minPassword   = 8
)

type OperatorStore interface {
	Create(ctx context.Context, o *models.Operator) error
	GetByEmail(ctx context.Context, email string) (*models.Operator, error)
}

type Service interface {
	CreateOperator(ctx context.Context, email, password string) (*models.Operator, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

type service struct {
	store  OperatorStore
	secret []byte
}

func NewService(store OperatorStore, secret string) *service {
	return &service{store: store, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

// operatorClaims is the token payload; the subject is the operator id.
type operatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *service) CreateOperator(ctx context.Context, email, password string) (*models.Operator, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("invalid email")
	}
	if len(password) < minPassword {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hashErr != nil {
		return nil, fmt.Errorf("hash password: %w", hashErr)
	}
	op := &models.Operator{ID: uuid.New(), Email: email, PasswordHash: string(hash)}
	if err := s.store.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	op, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("lookup operator: %w", err)
	}
	if op == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(op.ID)
}

func (s *service) issueToken(operatorID uuid.UUID) (string, error) {
	issued := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, operatorClaims{
		Role: roleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(tokenLifetime)),
		},
	}).SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	var c operatorClaims
	parsed, err := jwt.ParseWithClaims(token, &c, s.key, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || c.Role != roleOperator {
		return uuid.Nil, ErrInvalidToken
	}
	id, parseErr := uuid.Parse(c.Subject)
	if parseErr != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func (s *service) key(*jwt.Token) (any, error) {
	return s.secret, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
