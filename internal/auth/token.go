package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/messagely/internal/model"
)

// Claims はセッショントークンのクレーム。
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager はHS256署名のセッショントークンを発行・検証する。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
// ttlが0の場合は有効期限なしのトークンを発行する。
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue はusernameを埋め込んだトークンを発行する。
func (m *TokenManager) Issue(username string) (string, error) {
	now := m.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、呼び出し元のIdentityを返す。
// 検証に失敗した場合は常にUNAUTHORIZEDのAPIErrorを返す。
func (m *TokenManager) Verify(tokenString string) (*model.Identity, error) {
	if tokenString == "" {
		return nil, model.NewUnauthorizedError()
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, model.NewUnauthorizedError()
	}
	if claims.Username == "" {
		return nil, model.NewUnauthorizedError()
	}

	return &model.Identity{Username: claims.Username}, nil
}
