package cli

import (
	"context"
	"testing"

	"github.com/opticshop/optics/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["create-superuser"])
}

func TestCreateSuperuser(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	profile, err := CreateSuperuser(context.Background(), db, SuperuserOptions{
		Email:    " Root@Optics.Test ",
		Password: "s3cret-pass",
		Name:     "Root",
	})
	require.NoError(t, err)

	assert.Equal(t, "root@optics.test", profile.Email)
	assert.True(t, profile.IsSuperuser)
	assert.Nil(t, profile.TenantID)
	assert.Equal(t, "admin", profile.Role.Name)
	assert.True(t, profile.CheckPassword("s3cret-pass"))

	_, err = CreateSuperuser(context.Background(), db, SuperuserOptions{Email: "root@optics.test", Password: "x"})
	assert.Error(t, err)
}

func TestCreateSuperuserRequiresCredentials(t *testing.T) {
	_, err := CreateSuperuser(context.Background(), nil, SuperuserOptions{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
