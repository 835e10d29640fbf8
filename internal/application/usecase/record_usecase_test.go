package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

func seedRecord(t *testing.T, e *env, kindName string, rec *entity.Record) {
	t.Helper()
	kind, ok := entity.LookupKind(kindName)
	require.True(t, ok)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	require.NoError(t, e.store.Records.Create(context.Background(), kind, rec))
}

func recordIDs(list []*dto.RecordResponse) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestRecordList_GerenteVeSubordinados(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRecord(t, e, "leads", &entity.Record{ID: "L1", OwnerID: "S1"})
	seedRecord(t, e, "leads", &entity.Record{ID: "L3", OwnerID: "S3"})
	seedRecord(t, e, "leads", &entity.Record{ID: "LM", OwnerID: "M"})
	page := dto.PageRequest{Limit: 50}

	list, err := e.records.List(ctx, e.actor(t, "M"), "leads", page)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"L1", "LM"}, recordIDs(list))

	list, err = e.records.List(ctx, e.actor(t, "S1"), "leads", page)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, recordIDs(list))

	list, err = e.records.List(ctx, e.actor(t, "admin"), "leads", page)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestRecordList_TipoDesconocido(t *testing.T) {
	e := newEnv(t)
	_, err := e.records.List(context.Background(), e.actor(t, "admin"), "usuarios-secretos", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordUpdate_ExistenciaAntesQueVisibilidad(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRecord(t, e, "leads", &entity.Record{ID: "L3", OwnerID: "S3"})

	_, err := e.records.Update(ctx, e.actor(t, "S1"), "leads", "no-existe", dto.RecordRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.records.Update(ctx, e.actor(t, "S1"), "leads", "L3", dto.RecordRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, e.records.Delete(ctx, e.actor(t, "M"), "leads", "L3"), domain.ErrForbidden)
	assert.ErrorIs(t, e.records.Delete(ctx, e.actor(t, "M"), "leads", "nada"), domain.ErrNotFound)
}

func TestRecordCreate_DuenoForzado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.records.Create(ctx, e.actor(t, "S1"), "leads", dto.RecordRequest{OwnerID: strPtr("S3")})
	require.NoError(t, err)
	assert.Equal(t, "S1", rec.OwnerID, "un vendedor no elige dueño")
	assert.JSONEq(t, `{}`, string(rec.Data))

	rec, err = e.records.Create(ctx, e.actor(t, "admin"), "leads", dto.RecordRequest{OwnerID: strPtr("S3")})
	require.NoError(t, err)
	assert.Equal(t, "S3", rec.OwnerID)

	_, err = e.records.Create(ctx, e.actor(t, "admin"), "leads", dto.RecordRequest{OwnerID: strPtr("fantasma")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.records.Create(ctx, e.actor(t, "S1"), "leads", dto.RecordRequest{Data: json.RawMessage(`[1,2]`)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordCreate_ClienteDebeSerVisible(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRecord(t, e, "clients", &entity.Record{ID: "C1", OwnerID: "S1"})
	seedRecord(t, e, "clients", &entity.Record{ID: "C3", OwnerID: "S3"})
	total := decimal.RequireFromString("15800.50")

	rec, err := e.records.Create(ctx, e.actor(t, "S1"), "quotes", dto.RecordRequest{CustomerID: strPtr("C1"), Total: &total})
	require.NoError(t, err)
	require.NotNil(t, rec.CustomerID)
	assert.Equal(t, "C1", *rec.CustomerID)
	assert.True(t, total.Equal(*rec.Total))

	_, err = e.records.Create(ctx, e.actor(t, "S1"), "quotes", dto.RecordRequest{CustomerID: strPtr("C3")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.records.Create(ctx, e.actor(t, "S1"), "quotes", dto.RecordRequest{CustomerID: strPtr("C9")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordUpdate_MergeDeData(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRecord(t, e, "leads", &entity.Record{ID: "L1", OwnerID: "S1", Data: json.RawMessage(`{"nome":"Casa","kwp":5}`)})

	rec, err := e.records.Update(ctx, e.actor(t, "M"), "leads", "L1", dto.RecordRequest{
		Data:    json.RawMessage(`{"kwp":7.2,"status":"novo"}`),
		OwnerID: strPtr("S2"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nome":"Casa","kwp":7.2,"status":"novo"}`, string(rec.Data))
	assert.Equal(t, "S1", rec.OwnerID, "solo admin reasigna")
}

func TestRecordPortal_ClienteSoloVeLoSuyo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRecord(t, e, "clients", &entity.Record{ID: "C1", OwnerID: "S1"})
	seedRecord(t, e, "invoices", &entity.Record{ID: "F1", OwnerID: "S1", CustomerID: strPtr("C1")})
	seedRecord(t, e, "invoices", &entity.Record{ID: "F2", OwnerID: "S1", CustomerID: strPtr("C2")})
	cust := &entity.Actor{ID: "acc1", Role: entity.RoleCustomer, CustomerID: "C1", Active: true}

	list, err := e.records.List(ctx, cust, "invoices", dto.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, recordIDs(list))

	_, err = e.records.Get(ctx, cust, "invoices", "F2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.records.List(ctx, cust, "leads", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.records.Create(ctx, cust, "invoices", dto.RecordRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRecordPortal_TicketQuedaConElVendedor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRecord(t, e, "clients", &entity.Record{ID: "C1", OwnerID: "S2"})
	cust := &entity.Actor{ID: "acc1", Role: entity.RoleCustomer, CustomerID: "C1", Active: true}

	rec, err := e.records.Create(ctx, cust, "tickets", dto.RecordRequest{
		CustomerID: strPtr("C9"),
		OwnerID:    strPtr("S3"),
		Data:       json.RawMessage(`{"assunto":"Inversor apagado"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "S2", rec.OwnerID)
	require.NotNil(t, rec.CustomerID)
	assert.Equal(t, "C1", *rec.CustomerID)

	list, err := e.records.List(ctx, e.actor(t, "M"), "tickets", dto.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, recordIDs(list))
}

func TestRecordShared_PoliticaDeEscritura(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.records.Create(ctx, e.actor(t, "S1"), "inventory", dto.RecordRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	inv, err := e.records.Create(ctx, e.actor(t, "M"), "inventory", dto.RecordRequest{Data: json.RawMessage(`{"modelo":"550W"}`)})
	require.NoError(t, err)
	assert.Empty(t, inv.OwnerID)

	list, err := e.records.List(ctx, e.actor(t, "S1"), "inventory", dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list, 1, "los catálogos compartidos son visibles para todo el personal")

	_, err = e.records.Create(ctx, e.actor(t, "M"), "parameters", dto.RecordRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.records.Create(ctx, e.actor(t, "admin"), "parameters", dto.RecordRequest{})
	assert.NoError(t, err)
}
