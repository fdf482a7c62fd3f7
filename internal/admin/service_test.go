package admin

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Config: config.AdminConfig{
			JWTSecret:    "test-secret",
			JWTIssuer:    "chatcart",
			TokenTTL:     time.Hour,
			Email:        "owner@bakery.test",
			PasswordHash: string(hash),
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginAndParseToken(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Login(context.Background(), "Owner@Bakery.Test", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != "owner@bakery.test" || claims.Role != "admin" {
		t.Fatalf("claims %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "owner@bakery.test", "wrong"},
		{"wrong email", "intruder@bakery.test", "s3cret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			if err == nil {
				t.Fatal("want rejection")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("got error %v, want UNAUTHORIZED", err)
			}
		})
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	svc := newTestService(t)
	token, err := svc.Login(context.Background(), "owner@bakery.test", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.ParseToken(token + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}
	if _, err := svc.ParseToken("not-a-token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	svc, err := NewService(ServiceParams{
		Config: config.AdminConfig{
			JWTSecret:    "test-secret",
			TokenTTL:     time.Hour,
			Email:        "owner@bakery.test",
			PasswordHash: string(hash),
		},
		Now: func() time.Time { return past },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	token, err := svc.Login(context.Background(), "owner@bakery.test", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}
