package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/store"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

var (
	// ErrInvalidCredentials is returned for an unknown email, a wrong password or an inactive user.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the JWT claims issued at login.
type Claims struct {
	jwt.RegisteredClaims
	Role  model.Role `json:"role"`
	Email string     `json:"email"`
}

// UserStore is the persistence used by AuthService.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	users   UserStore
	secret  []byte
	expires time.Duration
	logger  *logger.Logger
	now     func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(users UserStore, secret string, expires time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		users:   users,
		secret:  []byte(secret),
		expires: expires,
		logger:  log.Named("auth"),
		now:     time.Now,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.expires.Seconds()),
	}, nil
}

func (s *AuthService) issue(user *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expires)),
		},
		Role:  user.Role,
		Email: user.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a bearer token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Register creates a staff user. Only admins may register users.
func (s *AuthService) Register(ctx context.Context, actor Actor, req model.RegisterRequest) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		Phone:        req.Phone,
		Active:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("registered_by", actor.UserID),
	)
	return user, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, actor Actor) (*model.User, error) {
	return s.users.GetUser(ctx, actor.UserID)
}
