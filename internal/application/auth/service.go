package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/ports"
	"github.com/jhoicas/solar-crm-api/internal/application/session"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
	pkgjwt "github.com/jhoicas/solar-crm-api/pkg/jwt"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
	"github.com/jhoicas/solar-crm-api/pkg/password"
)

// Config parámetros de autenticación.
type Config struct {
	ClientID        string // para resource_access[clientID].roles
	BootstrapSecret string
}

// LoginResult sesión emitida tras un login correcto.
type LoginResult struct {
	Token     string
	Principal entity.Principal
	Actor     *entity.Actor // nil en el login SSO: el perfil se resuelve en la siguiente petición
}

// BootstrapInput cuerpo de POST /api/admin/bootstrap/set-password.
type BootstrapInput struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
}

// Service une los dos orígenes de autenticación (SSO y contraseña local) en la misma sesión.
type Service struct {
	sessions  *session.Manager
	resolver  *authz.Resolver
	users     repository.UserRepository
	passwords repository.PasswordRepository
	idp       ports.IdentityProvider
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// NewService construye el servicio. idp nil = SSO deshabilitado y login local habilitado.
func NewService(
	sessions *session.Manager,
	resolver *authz.Resolver,
	users repository.UserRepository,
	passwords repository.PasswordRepository,
	idp ports.IdentityProvider,
	cfg Config,
	log *logger.Logger,
) *Service {
	return &Service{
		sessions:  sessions,
		resolver:  resolver,
		users:     users,
		passwords: passwords,
		idp:       idp,
		cfg:       cfg,
		log:       log.Component("auth"),
		now:       time.Now,
	}
}

// SSOEnabled informa si el proveedor de identidad está activo.
func (s *Service) SSOEnabled() bool {
	return s.idp != nil
}

// BeginLogin genera el desafío PKCE y devuelve la URL de autorización del proveedor.
func (s *Service) BeginLogin(ctx context.Context) (string, error) {
	if s.idp == nil {
		return "", domain.ErrSSODisabled
	}
	ch, err := s.sessions.BeginChallenge(ctx)
	if err != nil {
		return "", err
	}
	return s.idp.AuthCodeURL(ch.State, ch.Nonce, ch.Verifier), nil
}

// CompleteLogin consume el state una sola vez, canjea el código y crea la sesión.
func (s *Service) CompleteLogin(ctx context.Context, state, code string) (*LoginResult, error) {
	if s.idp == nil {
		return nil, domain.ErrSSODisabled
	}
	ch, err := s.sessions.ConsumeChallenge(ctx, state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, domain.ErrInvalidInput
	}
	id, err := s.idp.Exchange(ctx, code, ch.Verifier, ch.Nonce)
	if err != nil {
		return nil, fmt.Errorf("auth: canje con el proveedor: %w", err)
	}
	if strings.TrimSpace(id.Email) == "" {
		return nil, domain.ErrInvalidCredentials
	}
	p := entity.Principal{
		Subject: id.Subject,
		Email:   id.Email,
		Name:    id.Name,
		Roles:   ExtractRoles(pkgjwt.DecodeClaimsOrEmpty(id.AccessToken), id.IDClaims, s.cfg.ClientID),
		IDToken: id.IDToken,
		Source:  entity.SourceOIDC,
	}
	token, err := s.sessions.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("sub", p.Subject).Strs("roles", p.Roles).Msg("login SSO")
	return &LoginResult{Token: token, Principal: p}, nil
}

// LocalLogin valida email y contraseña del personal. Solo con el SSO deshabilitado.
// Email desconocido y contraseña errónea devuelven el mismo error.
func (s *Service) LocalLogin(ctx context.Context, email, plain string) (*LoginResult, error) {
	if s.idp != nil {
		return nil, domain.ErrLocalLoginDisabled
	}
	if strings.TrimSpace(email) == "" || plain == "" {
		return nil, domain.ErrInvalidInput
	}
	u, err := s.resolver.ResolveForLogin(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrInvalidCredentials
	}
	hash, err := s.passwords.Get(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: leer hash: %w", err)
	}
	if !password.Verify(plain, hash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.Active {
		return nil, domain.ErrAccountInactive
	}
	p := entity.Principal{
		Subject: u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Roles:   []string{u.Role},
		Source:  entity.SourceLocal,
	}
	token, err := s.sessions.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Principal: p, Actor: entity.ActorFromUser(u)}, nil
}

// CustomerLogin login del portal de clientes. La invitación debe estar aceptada.
func (s *Service) CustomerLogin(ctx context.Context, email, plain string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || plain == "" {
		return nil, domain.ErrInvalidInput
	}
	acc, err := s.resolver.ResolveCustomerForLogin(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc == nil || !password.Verify(plain, acc.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if acc.InviteStatus != entity.InviteStatusAccepted {
		return nil, domain.ErrInvitationPending
	}
	p := entity.Principal{
		Subject: acc.ID,
		Email:   acc.Email,
		Name:    acc.Name,
		Roles:   []string{entity.RoleCustomer},
		Source:  entity.SourceCustomer,
	}
	token, err := s.sessions.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Principal: p, Actor: entity.ActorFromAccount(acc)}, nil
}

// Logout revoca la sesión; idempotente.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// CheckActive comprobación posterior a la autenticación: un perfil desactivado pierde la sesión.
func (s *Service) CheckActive(ctx context.Context, token string, actor *entity.Actor) error {
	if actor == nil || actor.Active {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		s.log.Error().Err(err).Str("user_id", actor.ID).Msg("no se pudo cerrar la sesión de un perfil inactivo")
	}
	if actor.Role == entity.RoleCustomer {
		return domain.ErrInvitationPending
	}
	return domain.ErrAccountInactive
}

// SetPasswordBootstrap fija la contraseña local de un usuario sin sesión, protegido solo por el
// secreto compartido. El secreto se valida antes que el resto del cuerpo.
func (s *Service) SetPasswordBootstrap(ctx context.Context, in BootstrapInput) (*entity.User, error) {
	if err := authz.CheckBootstrapSecret(s.cfg.BootstrapSecret, in.Secret); err != nil {
		return nil, err
	}
	in.ID = strings.TrimSpace(in.ID)
	in.Email = strings.TrimSpace(in.Email)
	if in.ID == "" && in.Email == "" {
		return nil, domain.ErrInvalidInput
	}

	var (
		u   *entity.User
		err error
	)
	if in.ID != "" {
		u, err = s.users.GetByID(ctx, in.ID)
	} else {
		u, err = s.resolver.ResolveForLogin(ctx, in.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("auth: bootstrap: %w", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	if in.ID != "" && in.Email != "" && entity.NormalizeEmail(in.Email) != entity.NormalizeEmail(u.Email) {
		return nil, domain.ErrInvalidInput
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return nil, domain.ErrInvalidInput
		}
		return nil, err
	}
	if err := s.passwords.Set(ctx, u.ID, hash); err != nil {
		return nil, fmt.Errorf("auth: bootstrap: guardar hash: %w", err)
	}
	s.log.Warn().Str("user_id", u.ID).Time("at", s.now()).Msg("contraseña fijada por la ruta de bootstrap")
	return u, nil
}
