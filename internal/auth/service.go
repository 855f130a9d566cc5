package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-avltrack/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrNoDatabase         = errors.New("operator store unavailable")
	ErrNoOperators        = errors.New("no operator account exists and none is configured for seeding")
)

var (
	signTokenFn       = (*Service).signToken
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	OperatorID string `json:"operator_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
	}
}

// Enabled reports whether operator authentication is in force. Without an
// operator store there is nobody to authenticate and guarded routes are open.
func (s *Service) Enabled() bool {
	return s.db != nil
}

func (s *Service) CountOperators(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrNoDatabase
	}
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM operators`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operators: %w", err)
	}
	return n, nil
}

func (s *Service) CreateOperator(ctx context.Context, req CreateOperatorRequest) (Operator, error) {
	if req.Email == "" || req.Password == "" {
		return Operator{}, errors.New("email and password required")
	}
	if s.db == nil {
		return Operator{}, ErrNoDatabase
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Operator{}, err
	}

	op := Operator{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO operators (id, email, name, password_hash)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, op.ID, op.Email, op.Name, op.PasswordHash)
	if err := row.Scan(&op.CreatedAt); err != nil {
		return Operator{}, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

// EnsureOperator seeds the initial operator account. An existing account
// with the same email is left untouched.
func (s *Service) EnsureOperator(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if s.db == nil {
		return ErrNoDatabase
	}
	hash, err := hashPasswordFn([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO operators (id, email, name, password_hash)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (email) DO NOTHING
	`, uuid.NewString(), email, "admin", string(hash))
	return err
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Operator, TokenResponse, error) {
	if s.db == nil {
		return Operator{}, TokenResponse{}, ErrNoDatabase
	}
	row := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM operators WHERE email = $1
	`, req.Email)

	var op Operator
	if err := row.Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.CreatedAt); err != nil {
		return Operator{}, TokenResponse{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return Operator{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, op.ID)
	if err != nil {
		return Operator{}, TokenResponse{}, err
	}
	return op, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, operatorID string) (TokenResponse, error) {
	access, err := signTokenFn(s, operatorID, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, operatorID, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, operatorID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	operatorID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || operatorID != claims.OperatorID || time.Now().After(expiresAt) {
		return "", errors.New("refresh token invalid")
	}
	return claims.OperatorID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.OperatorID, nil
}

func (s *Service) signToken(operatorID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, s.keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) keyFunc(_ *jwt.Token) (interface{}, error) {
	return s.secret, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, operatorID string, ttl time.Duration) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, operator_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), operatorID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	if s.db == nil {
		return "", time.Time{}, ErrNoDatabase
	}
	row := s.db.QueryRow(ctx, `
		SELECT operator_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var operatorID string
	var expiresAt time.Time
	if err := row.Scan(&operatorID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return operatorID, expiresAt, nil
}
