package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/memory"
)

func strPtr(s string) *string { return &s }

func TestKVStore_ExpiraPerezosamente(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	kv := memory.NewKVStore(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", []byte("1"), time.Minute))
	v, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", string(v))

	now = now.Add(time.Minute)
	_, ok, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok, "en el instante exacto del TTL la entrada sigue vigente")

	now = now.Add(time.Nanosecond)
	_, ok, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "pasado el TTL la entrada ya no existe")
	assert.Equal(t, 0, kv.Len(), "el acceso barre las entradas vencidas")
}

func TestKVStore_TakeUnaSolaVez(t *testing.T) {
	kv := memory.NewKVStore(nil)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "state", []byte("x"), time.Minute))

	v, ok, err := kv.Take(ctx, "state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", string(v))

	_, ok, err = kv.Take(ctx, "state")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Delete(ctx, "state"), "Delete es idempotente")
}

func TestUserRepo_EmailUnicoSinMayusculas(t *testing.T) {
	repo := memory.NewUserRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entity.User{ID: "u1", Email: "Ana@Solar.com", Role: entity.RoleSalesperson}))

	err := repo.Create(ctx, &entity.User{ID: "u2", Email: "ana@solar.com"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	exact, err := repo.GetByEmail(ctx, "ana@solar.com", false)
	require.NoError(t, err)
	assert.Nil(t, exact)

	folded, err := repo.GetByEmail(ctx, "ana@solar.com", true)
	require.NoError(t, err)
	require.NotNil(t, folded)
	assert.Equal(t, "u1", folded.ID)
}

func TestUserRepo_SubordinadosUnNivel(t *testing.T) {
	repo := memory.NewUserRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entity.User{ID: "m", Email: "m@x", Role: entity.RoleManager}))
	require.NoError(t, repo.Create(ctx, &entity.User{ID: "s1", Email: "s1@x", ManagerID: strPtr("m")}))
	require.NoError(t, repo.Create(ctx, &entity.User{ID: "s2", Email: "s2@x", ManagerID: strPtr("s1")}))

	ids, err := repo.SubordinateIDs(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestRecordRepo_FiltroPorDuenoYCliente(t *testing.T) {
	repo := memory.NewRecordRepo()
	ctx := context.Background()
	quotes, _ := entity.LookupKind("quotes")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, quotes, &entity.Record{ID: "q1", OwnerID: "a", CustomerID: strPtr("c1"), CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, quotes, &entity.Record{ID: "q2", OwnerID: "b", CustomerID: strPtr("c2"), CreatedAt: base.Add(time.Hour)}))

	byOwner, err := repo.List(ctx, quotes, repository.RecordFilter{OwnerIDs: []string{"a"}})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "q1", byOwner[0].ID)

	byCustomer, err := repo.List(ctx, quotes, repository.RecordFilter{CustomerID: "c2"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "q2", byCustomer[0].ID)

	none, err := repo.List(ctx, quotes, repository.RecordFilter{OwnerIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none, "un conjunto de dueños vacío no ve nada")
}

func TestRecordRepo_ClienteEsLaPropiaFila(t *testing.T) {
	repo := memory.NewRecordRepo()
	ctx := context.Background()
	clients, _ := entity.LookupKind("clients")
	require.NoError(t, repo.Create(ctx, clients, &entity.Record{ID: "c1", OwnerID: "a"}))

	list, err := repo.List(ctx, clients, repository.RecordFilter{CustomerID: "c1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CustomerID)
	assert.Equal(t, "c1", *list[0].CustomerID)
}

func TestStore_RunAdminRestauraSiFalla(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, st.Users.Create(ctx, &entity.User{ID: "a", Email: "a@x", Active: true}))
	require.NoError(t, st.Users.Create(ctx, &entity.User{ID: "b", Email: "b@x", Active: true}))
	require.NoError(t, st.Passwords.Set(ctx, "b", "hash"))

	boom := errors.New("boom")
	err := st.RunAdmin(ctx, func(users repository.UserRepository, passwords repository.PasswordRepository, _ repository.PermissionRepository) error {
		if _, err := users.DeactivateAllExcept(ctx, "a"); err != nil {
			return err
		}
		if _, err := passwords.DeleteAllExcept(ctx, "a"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, err := st.Users.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.True(t, b.Active)
	hash, err := st.Passwords.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)
}

func TestPermissionRepo_ReplaceNoHaceMerge(t *testing.T) {
	repo := memory.NewPermissionRepo()
	ctx := context.Background()
	require.NoError(t, repo.Replace(ctx, "u", []entity.PermissionGrant{{Module: "leads", View: true}, {Module: "quotes", View: true}}))
	require.NoError(t, repo.Replace(ctx, "u", []entity.PermissionGrant{{Module: "leads", View: false}}))

	list, err := repo.ListByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "leads", list[0].Module)
	assert.False(t, list[0].View)
	assert.Equal(t, "u", list[0].UserID)
}
