package security

import (
	"errors"
	"strconv"
	"time"

	"seifenshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrEmptySecret  = errors.New("jwt secret is empty")
	ErrInvalidToken = errors.New("invalid access token")
)

// AccessClaims はアクセストークンの中身。sub は顧客ID（10進文字列）
type AccessClaims struct {
	Role         string `json:"role"`
	TokenVersion int    `json:"tv"`
	jwt.RegisteredClaims
}

// HS256で署名する
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}, nil
}

func (i *JWTIssuer) Issue(customerID int64, role model.Role, tokenVersion int, now time.Time) (string, int, error) {
	claims := AccessClaims{
		Role:         string(role),
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(customerID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(i.ttl.Seconds()), nil
}

// Identity は検証済みトークンから取り出した値
type Identity struct {
	CustomerID   int64
	Role         model.Role
	TokenVersion int
}

// VerifyAccessToken は署名・期限・HS256以外のalgを弾き、sub/role/tv を検査する。
func VerifyAccessToken(secret, raw string) (Identity, error) {
	var claims AccessClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}); err != nil {
		return Identity{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, ErrInvalidToken
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil || claims.TokenVersion < 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{CustomerID: id, Role: role, TokenVersion: claims.TokenVersion}, nil
}
