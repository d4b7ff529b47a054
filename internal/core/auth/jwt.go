package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-gin-auth-service/internal/core/errs"
)

type Claims struct {
	UID           string `json:"uid"`
	IssuedAtMicro int64  `json:"iat_us,omitempty"` // 微秒精度签发时刻；标准 iat 只有秒
	jwt.RegisteredClaims
}

// TokenPrecision 签发时刻与 passwordChangedAt 共用的时间精度
const TokenPrecision = time.Microsecond

// TokenInfo 验证通过后令牌绑定的身份与签发时间
type TokenInfo struct {
	UserID   string
	IssuedAt time.Time
}

// JWTer HS256 自包含令牌。密钥在启动时显式传入；更换密钥会让已签发令牌全部失效。
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

var ErrEmptySecret = errors.New("jwt secret must not be empty")

func NewJWTer(secret []byte, issuer string, ttl time.Duration) (*JWTer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTer{Secret: secret, Issuer: issuer, TTL: ttl, Now: time.Now}, nil
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) Issue(uid string) (string, error) {
	now := j.now().Truncate(TokenPrecision)
	claims := Claims{
		UID:           uid,
		IssuedAtMicro: now.UnixMicro(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Verify 只依赖 (token, 当前时间, 密钥)，不访问存储
func (j *JWTer) Verify(tokenStr string) (*TokenInfo, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	var c Claims
	t, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.Wrap(errs.KindUnauthorized, err, "token has expired, please log in again")
		}
		return nil, errs.Wrap(errs.KindUnauthorized, err, "invalid token, please log in again")
	}
	if !t.Valid || c.UID == "" || c.IssuedAt == nil {
		return nil, errs.Unauthorized("invalid token, please log in again")
	}
	issued := c.IssuedAt.Time
	if c.IssuedAtMicro > 0 {
		issued = time.UnixMicro(c.IssuedAtMicro)
	}
	if issued.Unix() != c.IssuedAt.Unix() {
		return nil, errs.Unauthorized("invalid token, please log in again")
	}
	return &TokenInfo{UserID: c.UID, IssuedAt: issued}, nil
}
