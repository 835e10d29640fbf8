// Package session emite, resuelve y revoca sesiones opacas, y guarda los desafíos PKCE del login SSO.
// El almacenamiento es un repository.KVStore inyectado (memoria o Redis).
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

const (
	sessionPrefix   = "session:"
	challengePrefix = "pkce:"
	tokenBytes      = 32

	DefaultTTL          = time.Hour
	DefaultChallengeTTL = 10 * time.Minute
)

// Options parámetros del manager. Los ceros toman los valores por defecto.
type Options struct {
	CookieName   string
	TTL          time.Duration
	ChallengeTTL time.Duration
	Secure       bool
	Now          func() time.Time
}

// Manager sesiones con expiración fija desde la creación (sin ventana deslizante).
type Manager struct {
	store        repository.KVStore
	cookieName   string
	ttl          time.Duration
	challengeTTL time.Duration
	secure       bool
	now          func() time.Time
}

// NewManager construye el manager sobre el almacén.
func NewManager(store repository.KVStore, opts Options) *Manager {
	m := &Manager{
		store:        store,
		cookieName:   opts.CookieName,
		ttl:          opts.TTL,
		challengeTTL: opts.ChallengeTTL,
		secure:       opts.Secure,
		now:          opts.Now,
	}
	if m.cookieName == "" {
		m.cookieName = "sid"
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.challengeTTL <= 0 {
		m.challengeTTL = DefaultChallengeTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

type stored struct {
	Principal entity.Principal `json:"principal"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// CookieName nombre de la cookie de sesión.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Create genera un token aleatorio y guarda el principal hasta now+TTL.
func (m *Manager) Create(ctx context.Context, p entity.Principal) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(stored{Principal: p, ExpiresAt: m.now().Add(m.ttl)})
	if err != nil {
		return "", fmt.Errorf("session: serializar: %w", err)
	}
	if err := m.store.Set(ctx, sessionPrefix+token, raw, m.ttl); err != nil {
		return "", fmt.Errorf("session: guardar: %w", err)
	}
	return token, nil
}

// Resolve devuelve el principal o nil si el token no existe o expiró. No renueva la sesión.
func (m *Manager) Resolve(ctx context.Context, token string) (*entity.Principal, error) {
	if token == "" {
		return nil, nil
	}
	raw, ok, err := m.store.Get(ctx, sessionPrefix+token)
	if err != nil {
		return nil, fmt.Errorf("session: leer: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var s stored
	if err := json.Unmarshal(raw, &s); err != nil {
		_ = m.store.Delete(ctx, sessionPrefix+token)
		return nil, nil
	}
	if m.now().After(s.ExpiresAt) {
		_ = m.store.Delete(ctx, sessionPrefix+token)
		return nil, nil
	}
	return &s.Principal, nil
}

// Destroy elimina la sesión. Idempotente, también sin token.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionPrefix+token); err != nil {
		return fmt.Errorf("session: borrar: %w", err)
	}
	return nil
}

// Cookie atributos de la cookie de sesión, independientes del framework HTTP.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite string
}

// Cookie cookie que transporta el token recién creado.
func (m *Manager) Cookie(token string) Cookie {
	return Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: "Lax",
	}
}

// ClearCookie cookie que borra la sesión en el navegador.
func (m *Manager) ClearCookie() Cookie {
	c := m.Cookie("")
	c.MaxAge = -1
	return c
}

// Challenge triple state/nonce/verifier del flujo authorization-code con PKCE.
type Challenge struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	Verifier  string    `json:"verifier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BeginChallenge genera y guarda un desafío indexado por state.
func (m *Manager) BeginChallenge(ctx context.Context) (*Challenge, error) {
	state, err := randomToken()
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, err
	}
	ch := &Challenge{
		State:     state,
		Nonce:     nonce,
		Verifier:  oauth2.GenerateVerifier(),
		ExpiresAt: m.now().Add(m.challengeTTL),
	}
	raw, err := json.Marshal(ch)
	if err != nil {
		return nil, fmt.Errorf("session: serializar desafío: %w", err)
	}
	if err := m.store.Set(ctx, challengePrefix+state, raw, m.challengeTTL); err != nil {
		return nil, fmt.Errorf("session: guardar desafío: %w", err)
	}
	return ch, nil
}

// ConsumeChallenge recupera y borra el desafío. Un state desconocido, vencido o ya usado
// devuelve domain.ErrInvalidState.
func (m *Manager) ConsumeChallenge(ctx context.Context, state string) (*Challenge, error) {
	if state == "" {
		return nil, domain.ErrInvalidState
	}
	raw, ok, err := m.store.Take(ctx, challengePrefix+state)
	if err != nil {
		return nil, fmt.Errorf("session: leer desafío: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidState
	}
	var ch Challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, domain.ErrInvalidState
	}
	if m.now().After(ch.ExpiresAt) {
		return nil, domain.ErrInvalidState
	}
	return &ch, nil
}

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generar token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
