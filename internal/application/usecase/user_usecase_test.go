package usecase_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/application/usecase"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/memory"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
	"github.com/jhoicas/solar-crm-api/pkg/password"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type env struct {
	store   *memory.Store
	blobs   *memory.BlobStore
	users   *usecase.UserUseCase
	records *usecase.RecordUseCase
	modules *usecase.ModuleService
}

// newEnv jerarquía: admin, gerente M con S1 y S2, vendedor S3 sin gerente.
func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.NewStore()
	ctx := context.Background()
	for _, u := range []*entity.User{
		{ID: "admin", Name: "Admin", Email: "admin@solar.com", Role: entity.RoleAdmin, Active: true},
		{ID: "M", Name: "Marta", Email: "m@solar.com", Role: entity.RoleManager, Active: true},
		{ID: "S1", Name: "Sara", Email: "s1@solar.com", Role: entity.RoleSalesperson, ManagerID: strPtr("M"), Active: true},
		{ID: "S2", Name: "Saulo", Email: "s2@solar.com", Role: entity.RoleSalesperson, ManagerID: strPtr("M"), Active: true},
		{ID: "S3", Name: "Sergio", Email: "s3@solar.com", Role: entity.RoleSalesperson, Active: true},
	} {
		require.NoError(t, st.Users.Create(ctx, u))
	}
	scoper := authz.NewScoper(st.Users)
	gate := authz.NewGate(scoper)
	blobs := memory.NewBlobStore()
	return &env{
		store:   st,
		blobs:   blobs,
		users:   usecase.NewUserUseCase(st.Users, st.Passwords, st.Permissions, st, blobs, scoper, gate, logger.Nop()),
		records: usecase.NewRecordUseCase(st.Records, st.Users, scoper, gate, logger.Nop()),
		modules: usecase.NewModuleService(st.Permissions),
	}
}

func (e *env) actor(t *testing.T, id string) *entity.Actor {
	t.Helper()
	u, err := e.store.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return entity.ActorFromUser(u)
}

func ids(list []*dto.UserResponse) []string {
	out := make([]string, 0, len(list))
	for _, u := range list {
		out = append(out, u.ID)
	}
	return out
}

func TestUserList_PorJerarquia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	page := dto.PageRequest{Limit: 50}

	all, err := e.users.List(ctx, e.actor(t, "admin"), page)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	mine, err := e.users.List(ctx, e.actor(t, "M"), page)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"M", "S1", "S2"}, ids(mine))

	self, err := e.users.List(ctx, e.actor(t, "S1"), page)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, ids(self))
}

func TestUserGet_NoEncontradoAntesQueProhibido(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Get(ctx, e.actor(t, "S1"), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.users.Get(ctx, e.actor(t, "S1"), "S3")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserCreate_GerenteFuerzaManagerID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.users.Create(ctx, e.actor(t, "M"), dto.CreateUserRequest{
		Name: "Nuevo", Email: "nuevo@solar.com", ManagerID: strPtr("otro"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSalesperson, u.Role)
	require.NotNil(t, u.ManagerID)
	assert.Equal(t, "M", *u.ManagerID)

	_, err = e.users.Create(ctx, e.actor(t, "M"), dto.CreateUserRequest{Email: "jefe@solar.com", Role: entity.RoleManager})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.users.Create(ctx, e.actor(t, "S1"), dto.CreateUserRequest{Email: "x@solar.com"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserCreate_Validaciones(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.actor(t, "admin")

	_, err := e.users.Create(ctx, admin, dto.CreateUserRequest{Email: "no-es-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.users.Create(ctx, admin, dto.CreateUserRequest{Email: "S1@solar.com"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	_, err = e.users.Create(ctx, admin, dto.CreateUserRequest{Email: "v@solar.com", ManagerID: strPtr("S1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el gerente debe tener rol manager o admin")

	u, err := e.users.Create(ctx, admin, dto.CreateUserRequest{Email: "v@solar.com", Password: "clave-segura"})
	require.NoError(t, err)
	hash, err := e.store.Passwords.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, password.Verify("clave-segura", hash))
}

func TestUserUpdate_GerenteNoCambiaRol(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.users.Update(ctx, e.actor(t, "M"), "S1", dto.UpdateUserRequest{
		Name: strPtr("Sara Lima"),
		Role: strPtr(entity.RoleAdmin),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sara Lima", u.Name)
	assert.Equal(t, entity.RoleSalesperson, u.Role)

	stored, err := e.store.Users.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSalesperson, stored.Role)
}

func TestUserUpdate_Reglas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Update(ctx, e.actor(t, "M"), "S3", dto.UpdateUserRequest{Name: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.users.Update(ctx, e.actor(t, "S1"), "S1", dto.UpdateUserRequest{Active: boolPtr(false)})
	assert.ErrorIs(t, err, domain.ErrForbidden, "nadie se desactiva a sí mismo")

	u, err := e.users.Update(ctx, e.actor(t, "admin"), "S3", dto.UpdateUserRequest{ManagerID: strPtr("M")})
	require.NoError(t, err)
	assert.Equal(t, "M", *u.ManagerID)

	u, err = e.users.Update(ctx, e.actor(t, "admin"), "S3", dto.UpdateUserRequest{ManagerID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, u.ManagerID)

	_, err = e.users.Update(ctx, e.actor(t, "admin"), "M", dto.UpdateUserRequest{ManagerID: strPtr("M")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, e.users.Delete(ctx, e.actor(t, "admin"), "admin"), domain.ErrForbidden)
	assert.ErrorIs(t, e.users.Delete(ctx, e.actor(t, "M"), "S3"), domain.ErrForbidden)
	assert.ErrorIs(t, e.users.Delete(ctx, e.actor(t, "M"), "nadie"), domain.ErrNotFound)
	require.NoError(t, e.users.Delete(ctx, e.actor(t, "M"), "S2"))

	u, err := e.store.Users.GetByID(ctx, "S2")
	require.NoError(t, err)
	assert.Nil(t, u)
}

// pngHeader firma de un PNG; basta para que la detección de tipo lo reconozca.
const pngHeader = "\x89PNG\r\n\x1a\n"

func TestUserAvatar_SubeYReemplaza(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s1 := e.actor(t, "S1")

	_, err := e.users.UploadAvatar(ctx, s1, "S1", bytes.NewReader([]byte("x")), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	img1 := pngHeader + "uno"
	u, err := e.users.UploadAvatar(ctx, s1, "S1", strings.NewReader(img1), int64(len(img1)))
	require.NoError(t, err)
	assert.True(t, u.HasAvatar)
	first, err := e.store.Users.GetByID(ctx, "S1")
	require.NoError(t, err)

	img2 := pngHeader + "dos"
	_, err = e.users.UploadAvatar(ctx, s1, "S1", strings.NewReader(img2), int64(len(img2)))
	require.NoError(t, err)
	_, _, err = e.blobs.Get(ctx, first.AvatarKey)
	assert.ErrorIs(t, err, domain.ErrNotFound, "el avatar anterior se borra")

	body, ct, err := e.users.Avatar(ctx, e.actor(t, "M"), "S1")
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, img2, string(raw), "los bytes leídos para detectar el tipo se conservan")
	assert.Equal(t, "image/png", ct)
}

func TestUserAvatar_RechazaTiposNoRaster(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s1 := e.actor(t, "S1")

	for name, content := range map[string]string{
		"svg con script": `<svg xmlns="http://www.w3.org/2000/svg"><script>fetch('/api/admin/users/purge')</script></svg>`,
		"html":           `<html><body>hola</body></html>`,
		"texto":          "no soy una imagen",
	} {
		_, err := e.users.UploadAvatar(ctx, s1, "S1", strings.NewReader(content), int64(len(content)))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
	u, err := e.store.Users.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, u.AvatarKey)
}

func TestUserAvatar_SinBlobStore(t *testing.T) {
	st := memory.NewStore()
	scoper := authz.NewScoper(st.Users)
	uc := usecase.NewUserUseCase(st.Users, st.Passwords, st.Permissions, st, nil, scoper, authz.NewGate(scoper), logger.Nop())
	_, err := uc.UploadAvatar(context.Background(), &entity.Actor{ID: "a", Role: entity.RoleAdmin, Active: true}, "a", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, domain.ErrBlobStoreDisabled)
}

func TestReplaceGrants_UnaFilaPorModulo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	grants, err := e.users.ReplaceGrants(ctx, e.actor(t, "M"), "S1", []dto.GrantInput{
		{Module: "leads", View: true},
		{Module: "Leads", View: true, Edit: true},
		{Module: "quotes", View: true, Create: true},
	})
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "leads", grants[0].Module)
	assert.True(t, grants[0].Edit, "con módulos repetidos gana el último")

	stored, err := e.store.Permissions.ListByUser(ctx, "S1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = e.users.ReplaceGrants(ctx, e.actor(t, "M"), "S3", nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.users.ReplaceGrants(ctx, e.actor(t, "S3"), "S3", []dto.GrantInput{{Module: " "}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPurge_DesactivaYBorraSalvoKeep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, id := range []string{"admin", "S1", "S2"} {
		hash, err := password.Hash("clave-segura")
		require.NoError(t, err)
		require.NoError(t, e.store.Passwords.Set(ctx, id, hash))
		require.NoError(t, e.store.Permissions.Replace(ctx, id, []entity.PermissionGrant{{Module: "leads", View: true}}))
	}

	_, err := e.users.Purge(ctx, e.actor(t, "M"), "admin")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.users.Purge(ctx, e.actor(t, "admin"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.users.Purge(ctx, e.actor(t, "admin"), "nadie")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	res, err := e.users.Purge(ctx, e.actor(t, "admin"), "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Deactivated)
	assert.Equal(t, int64(2), res.PasswordsDeleted)
	assert.Equal(t, int64(2), res.GrantsDeleted)

	keep, err := e.store.Users.GetByID(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, keep.Active)
	hash, err := e.store.Passwords.Get(ctx, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, hash, "keepId conserva su contraseña")

	for _, id := range []string{"S1", "S2"} {
		u, err := e.store.Users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, u.Active)
		h, err := e.store.Passwords.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, h)
		g, err := e.store.Permissions.ListByUser(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, g)
	}
}

func TestModuleService_DenegacionExplicita(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Permissions.Replace(ctx, "S1", []entity.PermissionGrant{{Module: "leads", View: true}}))

	ok, err := e.modules.Allows(ctx, e.actor(t, "S1"), "leads", entity.ActionView)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.modules.Allows(ctx, e.actor(t, "S1"), "leads", entity.ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.modules.Allows(ctx, e.actor(t, "S1"), "quotes", entity.ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok, "sin fila no hay restricción")

	require.NoError(t, e.store.Permissions.Replace(ctx, "admin", []entity.PermissionGrant{{Module: "leads"}}))
	ok, err = e.modules.Allows(ctx, e.actor(t, "admin"), "leads", entity.ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)
}
