package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
	"github.com/jhoicas/solar-crm-api/pkg/password"
)

// MaxAvatarBytes tamaño máximo aceptado para un avatar.
const MaxAvatarBytes = 2 << 20

// UserUseCase gestión de personal: visibilidad por jerarquía, permisos por módulo y purga.
type UserUseCase struct {
	users     repository.UserRepository
	passwords repository.PasswordRepository
	perms     repository.PermissionRepository
	admin     repository.AdminTxRunner
	blobs     repository.BlobStore // nil = avatares deshabilitados
	scoper    *authz.Scoper
	gate      *authz.Gate
	log       *logger.Logger
	now       func() time.Time
}

// NewUserUseCase construye el caso de uso. blobs puede ser nil.
func NewUserUseCase(
	users repository.UserRepository,
	passwords repository.PasswordRepository,
	perms repository.PermissionRepository,
	admin repository.AdminTxRunner,
	blobs repository.BlobStore,
	scoper *authz.Scoper,
	gate *authz.Gate,
	log *logger.Logger,
) *UserUseCase {
	return &UserUseCase{
		users:     users,
		passwords: passwords,
		perms:     perms,
		admin:     admin,
		blobs:     blobs,
		scoper:    scoper,
		gate:      gate,
		log:       log.Component("users"),
		now:       time.Now,
	}
}

// List usuarios visibles: admin todos, gerente él y sus subordinados, vendedor solo él.
func (uc *UserUseCase) List(ctx context.Context, actor *entity.Actor, page dto.PageRequest) ([]*dto.UserResponse, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	scope, err := uc.scoper.StaffScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	var ids []string
	if !scope.All {
		ids = scope.OwnerIDs
	}
	list, err := uc.users.List(ctx, ids, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	return out, nil
}

// Get existencia primero (404), después visibilidad (403).
func (uc *UserUseCase) Get(ctx context.Context, actor *entity.Actor, id string) (*dto.UserResponse, error) {
	u, err := uc.visibleUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func (uc *UserUseCase) load(ctx context.Context, id string) (*entity.User, error) {
	u, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (uc *UserUseCase) visibleUser(ctx context.Context, actor *entity.Actor, id string) (*entity.User, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	u, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	scope, err := uc.scoper.StaffScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !actor.Active || !scope.Contains(u.ID) {
		return nil, domain.ErrForbidden
	}
	return u, nil
}

// Create alta explícita de personal. Un gerente solo crea vendedores a su cargo.
func (uc *UserUseCase) Create(ctx context.Context, actor *entity.Actor, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	role, managerID, err := uc.gate.CanCreateUser(actor, strings.TrimSpace(in.Role), in.ManagerID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	email, err := validEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = email
	}
	if managerID != nil && *managerID == "" {
		managerID = nil
	}
	if err := uc.checkManager(ctx, managerID, ""); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != "" {
		if hash, err = password.Hash(in.Password); err != nil {
			if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
				return nil, domain.ErrInvalidInput
			}
			return nil, err
		}
	}

	now := uc.now()
	u := &entity.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		ManagerID: managerID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if hash != "" {
		if err := uc.passwords.Set(ctx, u.ID, hash); err != nil {
			return nil, fmt.Errorf("guardar contraseña inicial: %w", err)
		}
	}
	uc.log.Info().Str("actor_id", actor.ID).Str("user_id", u.ID).Str("role", u.Role).Msg("usuario creado")
	return toUserResponse(u), nil
}

// checkManager el gerente referenciado debe existir y tener rol manager o admin.
func (uc *UserUseCase) checkManager(ctx context.Context, managerID *string, selfID string) error {
	if managerID == nil {
		return nil
	}
	if *managerID == selfID {
		return domain.ErrInvalidInput
	}
	m, err := uc.users.GetByID(ctx, *managerID)
	if err != nil {
		return err
	}
	if m == nil || (m.Role != entity.RoleManager && m.Role != entity.RoleAdmin) {
		return domain.ErrInvalidInput
	}
	return nil
}

// Update aplica el patch. Rol y gerente se descartan en silencio si el actor no es admin.
func (uc *UserUseCase) Update(ctx context.Context, actor *entity.Actor, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	target, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanEditUser(actor, target); err != nil {
		return nil, err
	}

	patch := entity.UserPatch{Name: in.Name, Email: in.Email, Active: in.Active, Role: in.Role, ManagerID: in.ManagerID}
	if uc.gate.SanitizeUserPatch(actor, &patch) {
		uc.log.Debug().Str("actor_id", actor.ID).Str("user_id", id).Msg("cambio de rol/gerente ignorado: requiere admin")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		target.Name = name
	}
	if patch.Email != nil {
		email, err := validEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		target.Email = email
	}
	if patch.Active != nil {
		if !*patch.Active && actor.ID == target.ID {
			return nil, domain.ErrForbidden
		}
		target.Active = *patch.Active
	}
	if patch.Role != nil {
		if !entity.IsStaffRole(*patch.Role) {
			return nil, domain.ErrInvalidInput
		}
		target.Role = *patch.Role
	}
	if patch.ManagerID != nil {
		if *patch.ManagerID == "" {
			target.ManagerID = nil
		} else {
			if err := uc.checkManager(ctx, patch.ManagerID, target.ID); err != nil {
				return nil, err
			}
			m := *patch.ManagerID
			target.ManagerID = &m
		}
	}
	target.UpdatedAt = uc.now()
	if err := uc.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return toUserResponse(target), nil
}

// Delete borrado definitivo; nadie puede borrarse a sí mismo.
func (uc *UserUseCase) Delete(ctx context.Context, actor *entity.Actor, id string) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	target, err := uc.load(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.gate.CanDeleteUser(actor, target); err != nil {
		return err
	}
	if err := uc.users.Delete(ctx, id); err != nil {
		return err
	}
	if target.AvatarKey != "" && uc.blobs != nil {
		if err := uc.blobs.Delete(ctx, target.AvatarKey); err != nil {
			uc.log.Warn().Err(err).Str("key", target.AvatarKey).Msg("avatar huérfano tras borrar usuario")
		}
	}
	uc.log.Info().Str("actor_id", actor.ID).Str("user_id", id).Msg("usuario eliminado")
	return nil
}

// UploadAvatar guarda la imagen en el blob store y reemplaza la anterior.
// El tipo se deduce del contenido; el que declara el cliente no se usa.
func (uc *UserUseCase) UploadAvatar(ctx context.Context, actor *entity.Actor, id string, body io.Reader, size int64) (*dto.UserResponse, error) {
	if uc.blobs == nil {
		return nil, domain.ErrBlobStoreDisabled
	}
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	target, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanEditUser(actor, target); err != nil {
		return nil, err
	}
	if size <= 0 || size > MaxAvatarBytes {
		return nil, domain.ErrInvalidInput
	}
	contentType, body, err := sniffAvatar(body)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s", target.ID, uuid.New().String())
	if err := uc.blobs.Put(ctx, key, body, size, contentType); err != nil {
		return nil, err
	}
	old := target.AvatarKey
	target.AvatarKey = key
	target.UpdatedAt = uc.now()
	if err := uc.users.Update(ctx, target); err != nil {
		_ = uc.blobs.Delete(ctx, key)
		return nil, err
	}
	if old != "" {
		if err := uc.blobs.Delete(ctx, old); err != nil {
			uc.log.Warn().Err(err).Str("key", old).Msg("no se pudo borrar el avatar anterior")
		}
	}
	return toUserResponse(target), nil
}

// Avatar devuelve la imagen de un usuario visible. El llamador cierra el cuerpo.
func (uc *UserUseCase) Avatar(ctx context.Context, actor *entity.Actor, id string) (io.ReadCloser, string, error) {
	if uc.blobs == nil {
		return nil, "", domain.ErrBlobStoreDisabled
	}
	u, err := uc.visibleUser(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if u.AvatarKey == "" {
		return nil, "", domain.ErrNotFound
	}
	return uc.blobs.Get(ctx, u.AvatarKey)
}

// Grants permisos del usuario; mismas reglas que la edición.
func (uc *UserUseCase) Grants(ctx context.Context, actor *entity.Actor, id string) ([]entity.PermissionGrant, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	target, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanEditUser(actor, target); err != nil {
		return nil, err
	}
	return uc.perms.ListByUser(ctx, id)
}

// ReplaceGrants borra e inserta el conjunto completo. Con módulos repetidos gana el último.
func (uc *UserUseCase) ReplaceGrants(ctx context.Context, actor *entity.Actor, id string, in []dto.GrantInput) ([]entity.PermissionGrant, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	target, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.CanWriteGrants(actor, target); err != nil {
		return nil, err
	}

	byModule := make(map[string]entity.PermissionGrant, len(in))
	for _, g := range in {
		module := strings.ToLower(strings.TrimSpace(g.Module))
		if module == "" {
			return nil, domain.ErrInvalidInput
		}
		byModule[module] = entity.PermissionGrant{
			UserID: id, Module: module, View: g.View, Create: g.Create, Edit: g.Edit, Delete: g.Delete,
		}
	}
	grants := make([]entity.PermissionGrant, 0, len(byModule))
	for _, g := range byModule {
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Module < grants[j].Module })

	if err := uc.perms.Replace(ctx, id, grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// Purge desactiva a todos salvo keepID y borra sus contraseñas locales y permisos.
// keepID conserva su hash. Es irreversible y corre en una sola transacción.
func (uc *UserUseCase) Purge(ctx context.Context, actor *entity.Actor, keepID string) (*dto.PurgeResponse, error) {
	if err := uc.gate.CanPurge(actor); err != nil {
		return nil, err
	}
	keepID = strings.TrimSpace(keepID)
	if keepID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := uc.load(ctx, keepID); err != nil {
		return nil, err
	}

	res := &dto.PurgeResponse{KeepID: keepID}
	err := uc.admin.RunAdmin(ctx, func(users repository.UserRepository, passwords repository.PasswordRepository, perms repository.PermissionRepository) error {
		var err error
		if res.Deactivated, err = users.DeactivateAllExcept(ctx, keepID); err != nil {
			return err
		}
		if res.PasswordsDeleted, err = passwords.DeleteAllExcept(ctx, keepID); err != nil {
			return err
		}
		if res.GrantsDeleted, err = perms.DeleteAllExcept(ctx, keepID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purga: %w", err)
	}
	uc.log.Warn().
		Str("actor_id", actor.ID).
		Str("keep_id", keepID).
		Int64("deactivated", res.Deactivated).
		Int64("passwords_deleted", res.PasswordsDeleted).
		Int64("grants_deleted", res.GrantsDeleted).
		Msg("purga de usuarios ejecutada")
	return res, nil
}

// avatarTypes formatos raster servibles en línea. SVG queda fuera: puede llevar scripts.
var avatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// sniffAvatar lee la cabecera del archivo y devuelve el tipo detectado junto con un lector
// que vuelve a empezar desde el primer byte.
func sniffAvatar(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("leer avatar: %w", err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !avatarTypes[contentType] {
		return "", nil, domain.ErrInvalidInput
	}
	return contentType, io.MultiReader(bytes.NewReader(head), body), nil
}

func validEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidInput
	}
	return email, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		ManagerID: u.ManagerID,
		Active:    u.Active,
		HasAvatar: u.AvatarKey != "",
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
