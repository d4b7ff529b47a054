package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const (
	ResetTokenBytes = 32
	ResetTokenTTL   = 10 * time.Minute
)

// ResetCodec 一次性重置令牌：明文只发给用户，库里只存 sha256 摘要。
// 令牌本身熵足够高，用快速摘要即可，不需要慢哈希。
type ResetCodec struct {
	TTL time.Duration
	Now func() time.Time
}

func NewResetCodec(ttl time.Duration) *ResetCodec {
	if ttl <= 0 {
		ttl = ResetTokenTTL
	}
	return &ResetCodec{TTL: ttl, Now: time.Now}
}

func (c *ResetCodec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *ResetCodec) Issue() (token, digest string, expiresAt time.Time, err error) {
	b := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", time.Time{}, err
	}
	token = hex.EncodeToString(b)
	return token, DigestResetToken(token), c.now().Add(c.TTL), nil
}

// Verify 摘要匹配（常数时间）且 now <= expiresAt，两者都要满足
func (c *ResetCodec) Verify(token, digest string, expiresAt time.Time) bool {
	if token == "" || digest == "" {
		return false
	}
	match := subtle.ConstantTimeCompare([]byte(DigestResetToken(token)), []byte(digest)) == 1
	return match && !c.now().After(expiresAt)
}

func DigestResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
