package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"commerce-api/internal/models"
	"commerce-api/internal/redisclient"
	"commerce-api/internal/store"
	"commerce-api/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues and verifies bearer tokens and manages accounts
type AuthService struct {
	store  *store.Store
	redis  *redisclient.Client
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store *store.Store, redis *redisclient.Client, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		store:  store,
		redis:  redis,
		secret: []byte(secret),
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Claims carried in access tokens
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is the issued credential bundle
type TokenPair struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// RegisterRequest represents an account registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account. Admin accounts are seeded, never
// self-registered.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, *TokenPair, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	role := models.Role(req.Role)
	if role != models.RoleVendor && role != models.RoleCustomer {
		return nil, nil, ErrInvalidRole
	}

	existing, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.issueToken(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return user, pair, nil
}

// Login verifies credentials and issues a token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*models.User, *TokenPair, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to stamp last login", zap.Error(err))
	}

	pair, err := s.issueToken(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a valid token, revoking the old one
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	claims, err := s.ParseToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	if err := s.revoke(ctx, claims); err != nil {
		s.logger.Warn("Failed to revoke refreshed token", zap.Error(err))
	}

	return s.issueToken(user)
}

// Logout revokes the presented token until its natural expiry
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.ParseToken(ctx, rawToken)
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims)
}

// Me loads the account behind an actor
func (s *AuthService) Me(ctx context.Context, actor models.Actor) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ParseToken verifies signature, expiry and the revocation denylist, and
// returns the claims
func (s *AuthService) ParseToken(ctx context.Context, rawToken string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if !claims.Role.Valid() {
		return nil, ErrUnauthorized
	}

	if s.redis != nil && claims.ID != "" {
		revoked, err := s.redis.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("Denylist lookup failed", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// ActorFromClaims converts verified claims into the explicit actor
// threaded through service calls
func ActorFromClaims(claims *Claims) (models.Actor, error) {
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return models.Actor{}, ErrUnauthorized
	}
	return models.Actor{ID: userID, Role: claims.Role}, nil
}

func (s *AuthService) issueToken(user *models.User) (*TokenPair, error) {
	now := time.Now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenPair{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *Claims) error {
	if s.redis == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.redis.RevokeToken(ctx, claims.ID, ttl)
}
