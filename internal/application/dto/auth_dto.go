package dto

// LoginRequest login local del personal o del portal de clientes.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthConfigResponse lo que el front necesita para elegir la pantalla de login.
type AuthConfigResponse struct {
	SSOEnabled        bool   `json:"sso_enabled"`
	LocalLoginEnabled bool   `json:"local_login_enabled"`
	LoginURL          string `json:"login_url,omitempty"`
}

// MeResponse perfil del actor de la sesión.
type MeResponse struct {
	User       *UserResponse `json:"user,omitempty"`
	CustomerID string        `json:"customer_id,omitempty"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	Role       string        `json:"role"`
	Roles      []string      `json:"roles"`
	Source     string        `json:"source"`
	Created    bool          `json:"created,omitempty"`
}
