package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/solar-crm-api/internal/application/session"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/memory"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(secure bool) (*session.Manager, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewKVStore(c.now)
	return session.NewManager(store, session.Options{Secure: secure, Now: c.now}), c
}

func TestManager_RoundTripYExpiracion(t *testing.T) {
	m, c := newManager(false)
	ctx := context.Background()
	p := entity.Principal{Subject: "sub-1", Email: "ana@solar.com", Roles: []string{"manager"}, Source: entity.SourceOIDC}

	token, err := m.Create(ctx, p)
	require.NoError(t, err)
	assert.Len(t, token, 43, "32 bytes en base64url sin relleno")

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p, *got)

	c.advance(59 * time.Minute)
	got, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, got, "la actividad no renueva, pero aún no expiró")

	c.advance(2 * time.Minute)
	got, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// El vencimiento es exclusivo en el almacén y en el manager: en creación+TTL la sesión aún resuelve.
func TestManager_LimiteExactoDelTTL(t *testing.T) {
	m, c := newManager(false)
	ctx := context.Background()
	token, err := m.Create(ctx, entity.Principal{Email: "ana@solar.com"})
	require.NoError(t, err)

	c.advance(session.DefaultTTL)
	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, got)

	c.advance(time.Nanosecond)
	got, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_TokensDistintos(t *testing.T) {
	m, _ := newManager(false)
	ctx := context.Background()
	a, err := m.Create(ctx, entity.Principal{Email: "a@x"})
	require.NoError(t, err)
	b, err := m.Create(ctx, entity.Principal{Email: "a@x"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestManager_DestroyIdempotente(t *testing.T) {
	m, _ := newManager(false)
	ctx := context.Background()
	token, err := m.Create(ctx, entity.Principal{Email: "a@x"})
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, token))
	require.NoError(t, m.Destroy(ctx, token))
	require.NoError(t, m.Destroy(ctx, ""))

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_ResolveTokenDesconocido(t *testing.T) {
	m, _ := newManager(false)
	got, err := m.Resolve(context.Background(), "no-existe")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_Cookie(t *testing.T) {
	m, _ := newManager(true)
	c := m.Cookie("tok")
	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HTTPOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "Lax", c.SameSite)

	cleared := m.ClearCookie()
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	insecure, _ := newManager(false)
	assert.False(t, insecure.Cookie("tok").Secure)
}

func TestManager_DesafioPKCEUnSoloUso(t *testing.T) {
	m, _ := newManager(false)
	ctx := context.Background()

	ch, err := m.BeginChallenge(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ch.State)
	assert.NotEmpty(t, ch.Nonce)
	assert.NotEmpty(t, ch.Verifier)

	got, err := m.ConsumeChallenge(ctx, ch.State)
	require.NoError(t, err)
	assert.Equal(t, ch.Verifier, got.Verifier)
	assert.Equal(t, ch.Nonce, got.Nonce)

	_, err = m.ConsumeChallenge(ctx, ch.State)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestManager_DesafioVencido(t *testing.T) {
	m, c := newManager(false)
	ctx := context.Background()
	ch, err := m.BeginChallenge(ctx)
	require.NoError(t, err)

	c.advance(11 * time.Minute)
	_, err = m.ConsumeChallenge(ctx, ch.State)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = m.ConsumeChallenge(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
