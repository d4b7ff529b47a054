package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/core/mailer"
	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/internal/repo"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg mailer.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

var tokenInLink = regexp.MustCompile(`reset-password/([0-9a-f]{64})`)

func (n *recordingNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	m := tokenInLink.FindStringSubmatch(n.sent[len(n.sent)-1].HTML)
	require.Len(t, m, 2)
	return m[1]
}

// flakyRepo 按需注入存储错误
type flakyRepo struct {
	*repo.MemoryUserRepo
	createErr error
	setErr    error
	clearErr  error
	listErr   error
}

func (r *flakyRepo) Create(ctx context.Context, u *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryUserRepo.Create(ctx, u)
}

func (r *flakyRepo) SetResetToken(ctx context.Context, id, digest string, exp time.Time) error {
	if r.setErr != nil {
		return r.setErr
	}
	return r.MemoryUserRepo.SetResetToken(ctx, id, digest, exp)
}

func (r *flakyRepo) ClearResetToken(ctx context.Context, id string) error {
	if r.clearErr != nil {
		return r.clearErr
	}
	return r.MemoryUserRepo.ClearResetToken(ctx, id)
}

func (r *flakyRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.User, int64, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	return r.MemoryUserRepo.List(ctx, f)
}

var errStore = errors.New("store unavailable")

type fixture struct {
	clock    *clock
	users    *flakyRepo
	hasher   *auth.BcryptHasher
	jwt      *auth.JWTer
	notifier *recordingNotifier
	metrics  *Metrics
	auth     *AuthService
	admin    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	users := &flakyRepo{MemoryUserRepo: repo.NewMemoryUserRepo()}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost, 2)

	jw, err := auth.NewJWTer([]byte("0123456789abcdef0123456789abcdef"), "test", time.Hour)
	require.NoError(t, err)
	jw.Now = clk.Now
	codec := auth.NewResetCodec(10 * time.Minute)
	codec.Now = clk.Now

	notifier := &recordingNotifier{}
	metrics := NewMetrics(prometheus.NewRegistry())

	svc, err := NewAuthService(AuthDeps{
		Users:    users,
		Hasher:   hasher,
		Tokens:   jw,
		Resets:   codec,
		Notifier: notifier,
		ResetURL: "https://app.test/api/v1/reset-password/",
		Log:      zap.NewNop(),
		Metrics:  metrics,
		Now:      clk.Now,
	})
	require.NoError(t, err)

	return &fixture{
		clock:    clk,
		users:    users,
		hasher:   hasher,
		jwt:      jw,
		notifier: notifier,
		metrics:  metrics,
		auth:     svc,
		admin:    NewUserService(users, zap.NewNop(), metrics),
	}
}

func (f *fixture) register(t *testing.T, name, email, password string) *AuthResult {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return res
}

// seedRole 直接写库，绕过注册流程设置角色
func (f *fixture) seedRole(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(context.Background(), "password123")
	require.NoError(t, err)
	u := &domain.User{Name: email, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}
