package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/internal/domain"
)

func TestUserService_List(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.register(t, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), "password123")
	}

	page, err := f.admin.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Users, 3)

	page, err = f.admin.List(context.Background(), ListQuery{Offset: -5, Limit: 1000, Query: "user1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, "user1@example.com", page.Users[0].Email)
}

func TestUserService_List_StoreError(t *testing.T) {
	f := newFixture(t)
	f.users.listErr = errStore
	_, err := f.admin.List(context.Background(), ListQuery{})
	assert.Equal(t, errs.KindInternal, errs.KindOf(err))
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.seedRole(t, "mod@example.com", domain.RoleModerator)
	target := f.seedRole(t, "target@example.com", domain.RoleUser)

	require.NoError(t, f.admin.Delete(ctx, mod.ID, target.ID))
	_, err := f.users.FindByID(ctx, target.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.admin.Delete(ctx, mod.ID, target.ID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err), "missing target")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.events.WithLabelValues(EventDelete, "success")))
}

func TestUserService_DeleteAdminForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.seedRole(t, "root@example.com", domain.RoleAdmin)

	for _, actorRole := range []domain.Role{domain.RoleModerator, domain.RoleAdmin} {
		actor := f.seedRole(t, string(actorRole)+"-actor@example.com", actorRole)
		err := f.admin.Delete(ctx, actor.ID, target.ID)
		assert.Equal(t, errs.KindForbidden, errs.KindOf(err), "actor %s", actorRole)
	}
	_, err := f.users.FindByID(ctx, target.ID)
	assert.NoError(t, err)
}

func TestUserService_Profile(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "John", "john@example.com", "password123")

	me, err := f.admin.Profile(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", me.Email)

	_, err = f.admin.Profile(context.Background(), "ghost")
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))
}
