package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

// clientsKind tipo de recurso cuyas filas son los clientes finales.
const clientsKind = "clients"

// RecordUseCase CRUD genérico de los recursos de negocio.
// Orden fijo en lecturas y escrituras por id: existencia (404), luego visibilidad/permiso (403).
type RecordUseCase struct {
	records repository.RecordRepository
	users   repository.UserRepository
	scoper  *authz.Scoper
	gate    *authz.Gate
	log     *logger.Logger
	now     func() time.Time
}

// NewRecordUseCase construye el caso de uso.
func NewRecordUseCase(records repository.RecordRepository, users repository.UserRepository, scoper *authz.Scoper, gate *authz.Gate, log *logger.Logger) *RecordUseCase {
	return &RecordUseCase{
		records: records,
		users:   users,
		scoper:  scoper,
		gate:    gate,
		log:     log.Component("records"),
		now:     time.Now,
	}
}

func lookupKind(name string) (entity.ResourceKind, error) {
	kind, ok := entity.LookupKind(name)
	if !ok {
		return entity.ResourceKind{}, domain.ErrNotFound
	}
	return kind, nil
}

func checkActor(actor *entity.Actor) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !actor.Active {
		return domain.ErrForbidden
	}
	return nil
}

// List filas visibles para el actor: IN de dueños para el personal, igualdad de cliente para el portal.
func (uc *RecordUseCase) List(ctx context.Context, actor *entity.Actor, kindName string, page dto.PageRequest) ([]*dto.RecordResponse, error) {
	kind, err := lookupKind(kindName)
	if err != nil {
		return nil, err
	}
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	scope, err := uc.scoper.Scope(ctx, actor, kind)
	if err != nil {
		return nil, err
	}
	list, err := uc.records.List(ctx, kind, scope.Filter(page.Limit, page.Offset))
	if err != nil {
		return nil, err
	}
	out := make([]*dto.RecordResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, toRecordResponse(rec))
	}
	return out, nil
}

func (uc *RecordUseCase) load(ctx context.Context, kind entity.ResourceKind, id string) (*entity.Record, error) {
	rec, err := uc.records.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// Get lectura por id.
func (uc *RecordUseCase) Get(ctx context.Context, actor *entity.Actor, kindName, id string) (*dto.RecordResponse, error) {
	kind, err := lookupKind(kindName)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	rec, err := uc.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.Authorize(ctx, actor, entity.ActionView, kind, rec); err != nil {
		return nil, err
	}
	return toRecordResponse(rec), nil
}

// Create alta. El dueño es el actor salvo que un admin indique otro; los tickets abiertos
// desde el portal quedan a cargo del vendedor del cliente.
func (uc *RecordUseCase) Create(ctx context.Context, actor *entity.Actor, kindName string, in dto.RecordRequest) (*dto.RecordResponse, error) {
	kind, err := lookupKind(kindName)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.Authorize(ctx, actor, entity.ActionCreate, kind, nil); err != nil {
		return nil, err
	}
	data, err := normalizeData(in.Data)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	rec := &entity.Record{
		ID:        uuid.New().String(),
		Kind:      kind.Name,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if kind.HasTotal {
		rec.Total = in.Total
	}

	if actor.Role == entity.RoleCustomer {
		if err := uc.fillCustomerCreate(ctx, actor, kind, rec); err != nil {
			return nil, err
		}
	} else {
		if kind.Owned() {
			rec.OwnerID = actor.ID
			if in.OwnerID != nil && *in.OwnerID != actor.ID {
				if err := uc.reassignOwner(ctx, actor, rec, *in.OwnerID); err != nil {
					return nil, err
				}
			}
		}
		if err := uc.applyCustomer(ctx, actor, kind, rec, in.CustomerID); err != nil {
			return nil, err
		}
	}

	if err := uc.records.Create(ctx, kind, rec); err != nil {
		return nil, err
	}
	uc.log.Debug().Str("kind", kind.Name).Str("id", rec.ID).Str("actor_id", actor.ID).Msg("registro creado")
	return toRecordResponse(rec), nil
}

// fillCustomerCreate el cliente del registro es siempre el del actor y el dueño, el vendedor del cliente.
func (uc *RecordUseCase) fillCustomerCreate(ctx context.Context, actor *entity.Actor, kind entity.ResourceKind, rec *entity.Record) error {
	cid := actor.CustomerID
	rec.CustomerID = &cid
	if !kind.Owned() {
		return nil
	}
	ck, _ := entity.LookupKind(clientsKind)
	client, err := uc.records.GetByID(ctx, ck, cid)
	if err != nil {
		return err
	}
	if client == nil || client.OwnerID == "" {
		uc.log.Warn().Str("customer_id", cid).Msg("cliente del portal sin vendedor asignado")
		return domain.ErrForbidden
	}
	rec.OwnerID = client.OwnerID
	return nil
}

// reassignOwner solo admin; para el resto el dueño indicado se ignora y queda el actor.
func (uc *RecordUseCase) reassignOwner(ctx context.Context, actor *entity.Actor, rec *entity.Record, ownerID string) error {
	if !uc.gate.CanReassignOwner(actor) {
		uc.log.Debug().Str("actor_id", actor.ID).Str("owner_id", ownerID).Msg("cambio de dueño ignorado: requiere admin")
		return nil
	}
	owner, err := uc.users.GetByID(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner == nil || !entity.IsStaffRole(owner.Role) {
		return domain.ErrInvalidInput
	}
	rec.OwnerID = owner.ID
	return nil
}

// applyCustomer valida que el cliente indicado exista (400) y sea visible para el actor (403).
// "" quita el cliente. En la tabla de clientes el cliente es la propia fila.
func (uc *RecordUseCase) applyCustomer(ctx context.Context, actor *entity.Actor, kind entity.ResourceKind, rec *entity.Record, customerID *string) error {
	if customerID == nil || kind.CustomerColumn == "" || kind.CustomerColumn == "id" {
		return nil
	}
	cid := strings.TrimSpace(*customerID)
	if cid == "" {
		rec.CustomerID = nil
		return nil
	}
	ck, _ := entity.LookupKind(clientsKind)
	client, err := uc.records.GetByID(ctx, ck, cid)
	if err != nil {
		return err
	}
	if client == nil {
		return domain.ErrInvalidInput
	}
	if err := uc.gate.Authorize(ctx, actor, entity.ActionView, ck, client); err != nil {
		return err
	}
	rec.CustomerID = &client.ID
	return nil
}

// Update aplica el patch; las claves de data se combinan en el primer nivel.
func (uc *RecordUseCase) Update(ctx context.Context, actor *entity.Actor, kindName, id string, in dto.RecordRequest) (*dto.RecordResponse, error) {
	kind, err := lookupKind(kindName)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	rec, err := uc.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.Authorize(ctx, actor, entity.ActionEdit, kind, rec); err != nil {
		return nil, err
	}

	if len(in.Data) > 0 {
		merged, err := mergeData(rec.Data, in.Data)
		if err != nil {
			return nil, err
		}
		rec.Data = merged
	}
	if kind.HasTotal && in.Total != nil {
		rec.Total = in.Total
	}
	if kind.Owned() && in.OwnerID != nil && *in.OwnerID != rec.OwnerID {
		if err := uc.reassignOwner(ctx, actor, rec, *in.OwnerID); err != nil {
			return nil, err
		}
	}
	if err := uc.applyCustomer(ctx, actor, kind, rec, in.CustomerID); err != nil {
		return nil, err
	}

	rec.UpdatedAt = uc.now()
	if err := uc.records.Update(ctx, kind, rec); err != nil {
		return nil, err
	}
	return toRecordResponse(rec), nil
}

// Delete borrado definitivo por id.
func (uc *RecordUseCase) Delete(ctx context.Context, actor *entity.Actor, kindName, id string) error {
	kind, err := lookupKind(kindName)
	if err != nil {
		return err
	}
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	rec, err := uc.load(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := uc.gate.Authorize(ctx, actor, entity.ActionDelete, kind, rec); err != nil {
		return err
	}
	if err := uc.records.Delete(ctx, kind, id); err != nil {
		return err
	}
	uc.log.Info().Str("kind", kind.Name).Str("id", id).Str("actor_id", actor.ID).Msg("registro eliminado")
	return nil
}

// normalizeData data ausente o null = {}; cualquier otra cosa debe ser un objeto JSON.
func normalizeData(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		return nil, domain.ErrInvalidInput
	}
	return json.RawMessage(trimmed), nil
}

func mergeData(current, patch json.RawMessage) (json.RawMessage, error) {
	p, err := normalizeData(patch)
	if err != nil {
		return nil, err
	}
	base := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(current)) > 0 {
		if err := json.Unmarshal(current, &base); err != nil || base == nil {
			base = map[string]json.RawMessage{}
		}
	}
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(p, &changes); err != nil {
		return nil, domain.ErrInvalidInput
	}
	for k, v := range changes {
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toRecordResponse(rec *entity.Record) *dto.RecordResponse {
	data := rec.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return &dto.RecordResponse{
		ID:         rec.ID,
		Kind:       rec.Kind,
		OwnerID:    rec.OwnerID,
		CustomerID: rec.CustomerID,
		Total:      rec.Total,
		Data:       data,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
