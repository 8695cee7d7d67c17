package usecase

import (
	"time"

	"seifenshop/internal/domain/model"

	"github.com/google/uuid"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 平文パスワードとハッシュの変換・照合
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash string, plain string) bool
}

// アクセストークン発行
type AccessTokenIssuer interface {
	Issue(customerID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresIn int, err error)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
