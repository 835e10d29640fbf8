package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

func TestUUIDArg(t *testing.T) {
	v, ok := uuidArg("{6F9619FF-8B86-D011-B42D-00C04FC964FF}")
	require.True(t, ok)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", v)

	for _, id := range []string{"", "nada", "123", "6f9619ff-8b86-d011-b42d-00c04fc964f", "S1'; DROP TABLE profiles;--"} {
		_, ok := uuidArg(id)
		assert.False(t, ok, id)
	}

	ids := uuidArgs([]string{"x", "6f9619ff-8b86-d011-b42d-00c04fc964ff"})
	assert.Equal(t, []string{"6f9619ff-8b86-d011-b42d-00c04fc964ff"}, ids)
	assert.NotNil(t, uuidArgs([]string{"x"}), "un filtro vacío no debe volverse nil")
}

// Los ids mal formados no llegan a la base: con un Querier nil cualquier consulta entraría en pánico.
func TestRepos_IDMalFormadoNoConsulta(t *testing.T) {
	ctx := context.Background()
	leads, _ := entity.LookupKind("leads")
	quotes, _ := entity.LookupKind("quotes")

	u, err := NewUserRepository(nil).GetByID(ctx, "nada")
	require.NoError(t, err)
	assert.Nil(t, u)
	require.NoError(t, NewUserRepository(nil).Delete(ctx, "nada"))
	subs, err := NewUserRepository(nil).SubordinateIDs(ctx, "M")
	require.NoError(t, err)
	assert.Empty(t, subs)

	rec, err := NewRecordRepository(nil).GetByID(ctx, leads, "L3")
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, NewRecordRepository(nil).Delete(ctx, leads, "L3"))
	list, err := NewRecordRepository(nil).List(ctx, quotes, repository.RecordFilter{CustomerID: "C1"})
	require.NoError(t, err)
	assert.Empty(t, list)

	acc, err := NewCustomerAccountRepository(nil).GetByID(ctx, "cuenta")
	require.NoError(t, err)
	assert.Nil(t, acc)
}
