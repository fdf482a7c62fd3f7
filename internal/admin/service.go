package admin

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

const roleAdmin = "admin"

// Claims is the JWT payload issued to the dashboard operator.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Service authenticates the single configured dashboard operator and issues
// bearer tokens for the admin routes.
type Service struct {
	cfg  config.AdminConfig
	logg *logger.Logger
	now  func() time.Time
}

type ServiceParams struct {
	Config config.AdminConfig
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config.JWTSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin jwt secret required")
	}
	if params.Config.Email == "" || params.Config.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin credentials required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{cfg: params.Config, logg: params.Logger, now: now}, nil
}

// Login checks the operator credentials and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if !strings.EqualFold(email, s.cfg.Email) {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	issued := s.now()
	claims := Claims{
		Email: s.cfg.Email,
		Role:  roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.cfg.TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign token")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "email", s.cfg.Email), "admin login")
	}
	return token, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.Role != roleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return claims, nil
}
