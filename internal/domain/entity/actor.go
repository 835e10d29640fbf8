package entity

// Orígenes de un Principal.
const (
	SourceOIDC     = "oidc"
	SourceLocal    = "local"
	SourceCustomer = "customer"
)

// Principal es la identidad afirmada al autenticarse, antes de asociarla a un usuario interno.
type Principal struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Name    string   `json:"name,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	IDToken string   `json:"id_token,omitempty"`
	Source  string   `json:"source"`
}

// IsCustomer informa si el principal pertenece al espacio de clientes finales.
func (p Principal) IsCustomer() bool {
	if p.Source == SourceCustomer {
		return true
	}
	for _, r := range p.Roles {
		if r == RoleCustomer {
			return true
		}
	}
	return false
}

// Actor es el usuario interno (o cliente final) que protagoniza una decisión de autorización.
type Actor struct {
	ID         string
	Role       string
	Email      string
	Name       string
	ManagerID  *string
	CustomerID string // solo para RoleCustomer
	Active     bool
}

// IsAdmin atajo usado por el gate y los handlers.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// ActorFromUser construye el actor a partir del perfil persistido.
func ActorFromUser(u *User) *Actor {
	return &Actor{
		ID:        u.ID,
		Role:      u.Role,
		Email:     u.Email,
		Name:      u.Name,
		ManagerID: u.ManagerID,
		Active:    u.Active,
	}
}

// ActorFromAccount construye el actor del portal para un cliente final.
func ActorFromAccount(a *CustomerAccount) *Actor {
	return &Actor{
		ID:         a.ID,
		Role:       RoleCustomer,
		Email:      a.Email,
		Name:       a.Name,
		CustomerID: a.ClientID,
		Active:     a.InviteStatus == InviteStatusAccepted,
	}
}
