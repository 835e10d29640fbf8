package auth

import "sort"

// ExtractRoles une los roles de los claims del access token y del id token:
// realm_access.roles, resource_access[clientID].roles y el claim plano "roles" de ambos.
// El resultado no tiene duplicados y va ordenado; no hace llamadas de red.
func ExtractRoles(accessClaims, idClaims map[string]any, clientID string) []string {
	set := make(map[string]struct{})
	for _, claims := range []map[string]any{accessClaims, idClaims} {
		if claims == nil {
			continue
		}
		if realm, ok := claims["realm_access"].(map[string]any); ok {
			addRoles(set, realm["roles"])
		}
		if clientID != "" {
			if resources, ok := claims["resource_access"].(map[string]any); ok {
				if client, ok := resources[clientID].(map[string]any); ok {
					addRoles(set, client["roles"])
				}
			}
		}
		addRoles(set, claims["roles"])
	}
	roles := make([]string, 0, len(set))
	for r := range set {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func addRoles(set map[string]struct{}, v any) {
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				set[s] = struct{}{}
			}
		}
	case []string:
		for _, s := range list {
			if s != "" {
				set[s] = struct{}{}
			}
		}
	}
}
