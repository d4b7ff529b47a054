package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/internal/core/mailer"
	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/pkg/utils"
)

// TokenIssuer 由 auth.JWTer 实现
type TokenIssuer interface {
	Issue(uid string) (string, error)
}

type AuthDeps struct {
	Users    domain.UserRepository
	Hasher   auth.PasswordHasher
	Tokens   TokenIssuer
	Resets   *auth.ResetCodec
	Notifier mailer.Notifier
	// ResetURL 重置链接前缀，令牌作为最后一段路径
	ResetURL string
	Log      *zap.Logger
	Metrics  *Metrics
	Now      func() time.Time
}

type AuthService struct {
	users    domain.UserRepository
	hasher   auth.PasswordHasher
	tokens   TokenIssuer
	resets   *auth.ResetCodec
	notifier mailer.Notifier
	resetURL string
	log      *zap.Logger
	metrics  *Metrics
	now      func() time.Time

	dummyOnce sync.Once
	dummy     string
}

type AuthResult struct {
	Token string
	User  domain.PublicUser
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func NewAuthService(d AuthDeps) (*AuthService, error) {
	switch {
	case d.Users == nil:
		return nil, errors.New("auth service: nil user repository")
	case d.Hasher == nil:
		return nil, errors.New("auth service: nil password hasher")
	case d.Tokens == nil:
		return nil, errors.New("auth service: nil token issuer")
	case d.Resets == nil:
		return nil, errors.New("auth service: nil reset codec")
	case d.Notifier == nil:
		return nil, errors.New("auth service: nil notifier")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &AuthService{
		users:    d.Users,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		resets:   d.Resets,
		notifier: d.Notifier,
		resetURL: strings.TrimRight(d.ResetURL, "/"),
		log:      d.Log.Named("auth"),
		metrics:  d.Metrics,
		now:      d.Now,
	}, nil
}

func errBadCredentials() error { return errs.Unauthorized("incorrect email or password") }

func errBadResetToken() error {
	return errs.New(errs.KindInvalidToken, "token is invalid or has expired")
}

func (s *AuthService) issue(u *domain.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, errs.Internal("issue token failed", err)
	}
	return &AuthResult{Token: tok, User: u.Public()}, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer func() { s.metrics.observe(EventRegister, err) }()
	ctx = context.WithoutCancel(ctx)

	name := strings.TrimSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, errs.Internal("hash password failed", err)
	}
	u := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleUser}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, errs.Wrap(errs.KindConflict, err, "email already in use")
		}
		return nil, errs.Internal("create user failed", err)
	}
	s.log.Info("user registered", zap.String("uid", u.ID))
	return s.issue(u)
}

// dummyHash 账号不存在时也做一次等价的校验，响应时间不暴露账号是否存在
func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash(context.Background(), "not-a-real-password")
	})
	return s.dummy
}

// Login 四种失败（缺邮箱、缺密码、无此用户、密码错）返回同一条提示。
// 校验脱离请求取消：哈希池排队超时不能被当成密码错误。
func (s *AuthService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	defer func() { s.metrics.observe(EventLogin, err) }()
	ctx = context.WithoutCancel(ctx)

	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errBadCredentials()
	}
	u, err := s.users.FindByEmailWithPassword(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.hasher.Verify(ctx, password, s.dummyHash())
		return nil, errBadCredentials()
	case err != nil:
		return nil, errs.Internal("load user failed", err)
	}
	if !s.hasher.Verify(ctx, password, u.PasswordHash) {
		s.log.Info("login rejected", zap.String("uid", u.ID))
		return nil, errBadCredentials()
	}
	return s.issue(u)
}

func (s *AuthService) resetLink(token string) string { return s.resetURL + "/" + token }

// ForgotPassword 写入重置摘要并投递邮件；投递失败时清除摘要再返回 DELIVERY_FAILED
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.observe(EventForgot, err) }()
	ctx = context.WithoutCancel(ctx)

	u, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return errs.NotFound("there is no user with that email address")
	}
	if err != nil {
		return errs.Internal("load user failed", err)
	}

	token, digest, expiresAt, err := s.resets.Issue()
	if err != nil {
		return errs.Internal("issue reset token failed", err)
	}
	if err := s.users.SetResetToken(ctx, u.ID, digest, expiresAt); err != nil {
		return errs.Internal("save reset token failed", err)
	}

	msg := mailer.ResetPasswordMessage(u.Email, s.resetLink(token), s.resets.TTL)
	if sendErr := s.notifier.Send(ctx, msg); sendErr != nil {
		if clearErr := s.users.ClearResetToken(ctx, u.ID); clearErr != nil {
			s.log.Error("reset token rollback failed", zap.String("uid", u.ID), zap.Error(clearErr))
		}
		s.log.Warn("reset email delivery failed", zap.String("uid", u.ID), zap.Error(sendErr))
		return errs.Wrap(errs.KindDelivery, sendErr, "there was an error sending the email, try again later")
	}
	s.log.Info("reset token issued", zap.String("uid", u.ID), zap.Time("expires_at", expiresAt))
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (res *AuthResult, err error) {
	defer func() { s.metrics.observe(EventReset, err) }()
	ctx = context.WithoutCancel(ctx)

	now := s.now()
	u, err := s.users.FindByResetDigest(ctx, auth.DigestResetToken(token), now)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errBadResetToken()
	}
	if err != nil {
		return nil, errs.Internal("load user failed", err)
	}
	if !u.HasPendingReset() || !s.resets.Verify(token, *u.ResetTokenDigest, *u.ResetTokenExpiresAt) {
		return nil, errBadResetToken()
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	return s.setPassword(ctx, u, password)
}

// ChangePassword 已登录用户改密；成功后旧令牌全部失效
func (s *AuthService) ChangePassword(ctx context.Context, uid, current, password string) (res *AuthResult, err error) {
	defer func() { s.metrics.observe(EventChange, err) }()
	ctx = context.WithoutCancel(ctx)

	u, err := s.users.FindByIDWithPassword(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errs.Unauthorized("the user belonging to this token no longer exists")
	}
	if err != nil {
		return nil, errs.Internal("load user failed", err)
	}
	if !s.hasher.Verify(ctx, current, u.PasswordHash) {
		return nil, errs.Unauthorized("your current password is wrong")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	return s.setPassword(ctx, u, password)
}

// setPassword 哈希完成后才取改密时刻：哈希期间签发的旧令牌也要失效。
// 时刻截到令牌精度，落库不丢位；随后签发的新令牌不早于它。
func (s *AuthService) setPassword(ctx context.Context, u *domain.User, password string) (*AuthResult, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, errs.Internal("hash password failed", err)
	}
	changedAt := s.now().Truncate(auth.TokenPrecision)
	if err := s.users.UpdatePassword(ctx, u.ID, hash, changedAt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errs.Unauthorized("the user belonging to this token no longer exists")
		}
		return nil, errs.Internal("update password failed", err)
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.ResetTokenDigest, u.ResetTokenExpiresAt = nil, nil
	s.log.Info("password changed", zap.String("uid", u.ID))
	return s.issue(u)
}

// CancelPasswordReset 撤销未完成的重置，幂等
func (s *AuthService) CancelPasswordReset(ctx context.Context, uid string) error {
	err := s.users.ClearResetToken(context.WithoutCancel(ctx), uid)
	if errors.Is(err, domain.ErrNotFound) {
		return errs.Unauthorized("the user belonging to this token no longer exists")
	}
	if err != nil {
		return errs.Internal("clear reset token failed", err)
	}
	return nil
}
