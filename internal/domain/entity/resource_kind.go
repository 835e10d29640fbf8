package entity

import "sort"

// WritePolicy define quién puede mutar filas de un tipo de recurso.
type WritePolicy int

const (
	// WriteByOwner: dueño, su gerente o admin (recursos con dueño).
	WriteByOwner WritePolicy = iota
	// WriteByManager: admin o cualquier gerente (catálogos compartidos).
	WriteByManager
	// WriteByAdmin: solo admin (parámetros del sistema).
	WriteByAdmin
)

// ResourceKind describe un tipo de recurso CRUD y cómo se persiste.
type ResourceKind struct {
	Name           string // segmento de la ruta /api/<name>
	Table          string
	OwnerColumn    string // "" = recurso sin dueño
	CustomerColumn string // "" = invisible para clientes finales
	HasTotal       bool
	Policy         WritePolicy
	CustomerCreate bool // el cliente final puede crear (tickets)
}

// Owned informa si el recurso tiene dueño y por lo tanto se filtra por jerarquía.
func (k ResourceKind) Owned() bool {
	return k.OwnerColumn != ""
}

// Module nombre del módulo usado en permission_grants.
func (k ResourceKind) Module() string {
	return k.Name
}

var resourceKinds = map[string]ResourceKind{
	"leads":      {Name: "leads", Table: "leads", OwnerColumn: "user_id", Policy: WriteByOwner},
	"clients":    {Name: "clients", Table: "clientes", OwnerColumn: "vendedor_id", CustomerColumn: "id", Policy: WriteByOwner},
	"quotes":     {Name: "quotes", Table: "orcamentos", OwnerColumn: "vendedor_id", CustomerColumn: "cliente_id", HasTotal: true, Policy: WriteByOwner},
	"proposals":  {Name: "proposals", Table: "propostas", OwnerColumn: "vendedor_id", CustomerColumn: "cliente_id", HasTotal: true, Policy: WriteByOwner},
	"projects":   {Name: "projects", Table: "projetos", OwnerColumn: "user_id", CustomerColumn: "cliente_id", HasTotal: true, Policy: WriteByOwner},
	"invoices":   {Name: "invoices", Table: "faturas", OwnerColumn: "user_id", CustomerColumn: "cliente_id", HasTotal: true, Policy: WriteByOwner},
	"tickets":    {Name: "tickets", Table: "tickets", OwnerColumn: "user_id", CustomerColumn: "cliente_id", Policy: WriteByOwner, CustomerCreate: true},
	"inventory":  {Name: "inventory", Table: "equipamentos", Policy: WriteByManager},
	"kanban":     {Name: "kanban", Table: "kanban_config", Policy: WriteByManager},
	"parameters": {Name: "parameters", Table: "parametros", Policy: WriteByAdmin},
}

// LookupKind devuelve la descripción del tipo o false si no existe.
func LookupKind(name string) (ResourceKind, bool) {
	k, ok := resourceKinds[name]
	return k, ok
}

// ResourceKinds lista todos los tipos ordenados por nombre.
func ResourceKinds() []ResourceKind {
	out := make([]ResourceKind, 0, len(resourceKinds))
	for _, k := range resourceKinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
