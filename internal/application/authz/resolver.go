package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

// EmailMatch modo de comparación de email en el camino sesión → perfil.
type EmailMatch string

const (
	EmailExact       EmailMatch = "exact"
	EmailInsensitive EmailMatch = "insensitive"
)

// Resolver asocia un Principal autenticado con su Actor interno.
type Resolver struct {
	users    repository.UserRepository
	accounts repository.CustomerAccountRepository
	match    EmailMatch
	log      *logger.Logger
	now      func() time.Time
}

// NewResolver construye el resolver. match controla la comparación de email del perfil;
// el login local siempre compara sin distinguir mayúsculas.
func NewResolver(users repository.UserRepository, accounts repository.CustomerAccountRepository, match EmailMatch, log *logger.Logger) *Resolver {
	if match == "" {
		match = EmailExact
	}
	return &Resolver{users: users, accounts: accounts, match: match, log: log.Component("authz"), now: time.Now}
}

// Resolve carga el actor del principal. Devuelve domain.ErrActorNotFound si no hay fila;
// los llamadores lo tratan como falta de privilegios (403).
func (r *Resolver) Resolve(ctx context.Context, p entity.Principal) (*entity.Actor, error) {
	if strings.TrimSpace(p.Email) == "" {
		return nil, domain.ErrActorNotFound
	}
	if p.IsCustomer() {
		acc, err := r.accounts.GetByEmail(ctx, p.Email, r.match == EmailInsensitive)
		if err != nil {
			return nil, fmt.Errorf("resolver cliente: %w", err)
		}
		if acc == nil {
			return nil, domain.ErrActorNotFound
		}
		return entity.ActorFromAccount(acc), nil
	}
	u, err := r.users.GetByEmail(ctx, p.Email, r.match == EmailInsensitive)
	if err != nil {
		return nil, fmt.Errorf("resolver actor: %w", err)
	}
	if u == nil {
		return nil, domain.ErrActorNotFound
	}
	return entity.ActorFromUser(u), nil
}

// ResolveForLogin busca el perfil del login local; siempre sin distinguir mayúsculas.
// Devuelve (nil, nil) si no existe para que el llamador no distinga email desconocido de clave errónea.
func (r *Resolver) ResolveForLogin(ctx context.Context, email string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	u, err := r.users.GetByEmail(ctx, email, true)
	if err != nil {
		return nil, fmt.Errorf("resolver login: %w", err)
	}
	return u, nil
}

// ResolveCustomerForLogin análogo para el portal de clientes.
func (r *Resolver) ResolveCustomerForLogin(ctx context.Context, email string) (*entity.CustomerAccount, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	acc, err := r.accounts.GetByEmail(ctx, email, true)
	if err != nil {
		return nil, fmt.Errorf("resolver login cliente: %w", err)
	}
	return acc, nil
}

// GetOrCreate es la única vía que crea perfiles implícitamente: el primer acceso al perfil
// propio de un principal del personal sin fila crea un vendedor activo.
func (r *Resolver) GetOrCreate(ctx context.Context, p entity.Principal) (*entity.Actor, bool, error) {
	actor, err := r.Resolve(ctx, p)
	if err == nil {
		return actor, false, nil
	}
	if !errors.Is(err, domain.ErrActorNotFound) || p.IsCustomer() || strings.TrimSpace(p.Email) == "" {
		return nil, false, err
	}

	now := r.now()
	name := p.Name
	if name == "" {
		name = p.Email
	}
	u := &entity.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     strings.TrimSpace(p.Email),
		Role:      entity.RoleSalesperson,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			// Otra petición lo creó en paralelo (o difiere solo en mayúsculas con modo exacto).
			return nil, false, domain.ErrForbidden
		}
		return nil, false, fmt.Errorf("auto-provisionar perfil: %w", err)
	}
	r.log.Warn().
		Str("user_id", u.ID).
		Str("email", u.Email).
		Str("source", p.Source).
		Msg("perfil creado automáticamente en el primer acceso")
	return entity.ActorFromUser(u), true, nil
}
