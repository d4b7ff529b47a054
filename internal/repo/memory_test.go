package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-auth-service/internal/domain"
)

func seed(t *testing.T, r *MemoryUserRepo, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: email, PasswordHash: "hash-" + email, Role: role}
	require.NoError(t, r.Create(context.Background(), u))
	return u
}

func TestMemoryUserRepo_CreateAndFind(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	u := seed(t, r, "a@b.c", "")

	assert.Len(t, u.ID, 32)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())

	pub, err := r.FindByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Empty(t, pub.PasswordHash)

	full, err := r.FindByIDWithPassword(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-a@b.c", full.PasswordHash)

	byID, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", byID.Email)
	assert.Empty(t, byID.PasswordHash)

	_, err = r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = r.Create(ctx, &domain.User{Email: "a@b.c", Name: "dup"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestMemoryUserRepo_ResetLifecycle(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	u := seed(t, r, "a@b.c", domain.RoleUser)
	now := time.Now()

	require.NoError(t, r.SetResetToken(ctx, u.ID, "d1", now.Add(time.Minute)))
	require.NoError(t, r.SetResetToken(ctx, u.ID, "d2", now.Add(time.Minute)))

	_, err := r.FindByResetDigest(ctx, "d1", now)
	assert.ErrorIs(t, err, domain.ErrNotFound, "superseded digest")

	got, err := r.FindByResetDigest(ctx, "d2", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.FindByResetDigest(ctx, "d2", now.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrNotFound, "expiry is exclusive")

	changed := now.Add(time.Second)
	require.NoError(t, r.UpdatePassword(ctx, u.ID, "new-hash", changed))
	full, err := r.FindByIDWithPassword(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", full.PasswordHash)
	assert.False(t, full.HasPendingReset())
	require.NotNil(t, full.PasswordChangedAt)
	assert.True(t, full.PasswordChangedAt.Equal(changed))
}

func TestMemoryUserRepo_ReturnsCopies(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	u := seed(t, r, "a@b.c", domain.RoleUser)

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.Role = domain.RoleAdmin

	again, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, again.Role)
}

func TestMemoryUserRepo_SoftDelete(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	u := seed(t, r, "a@b.c", domain.RoleUser)

	require.NoError(t, r.Delete(ctx, u.ID))
	_, err := r.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.FindByIDWithPassword(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, u.ID), domain.ErrNotFound)
	assert.ErrorIs(t, r.ClearResetToken(ctx, u.ID), domain.ErrNotFound)

	_, total, err := r.List(ctx, domain.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = r.List(ctx, domain.ListFilter{Limit: 10, WithDeleted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestMemoryUserRepo_ListPaging(t *testing.T) {
	r := NewMemoryUserRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	r.now = func() time.Time { i++; return base.Add(time.Duration(i) * time.Minute) }
	for n := 0; n < 5; n++ {
		seed(t, r, fmt.Sprintf("user%d@b.c", n), domain.RoleUser)
	}
	seed(t, r, "boss@b.c", domain.RoleAdmin)
	ctx := context.Background()

	page, total, err := r.List(ctx, domain.ListFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	require.Len(t, page, 2)
	assert.Equal(t, "user4@b.c", page[0].Email, "newest first")
	assert.Empty(t, page[0].PasswordHash)

	found, total, err := r.List(ctx, domain.ListFilter{Limit: 10, Query: "BOSS"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, domain.RoleAdmin, found[0].Role)

	empty, _, err := r.List(ctx, domain.ListFilter{Offset: 50, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
