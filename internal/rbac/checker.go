package rbac

import (
	"strings"

	"fenafar_admin/internal/models"
)

const (
	SindicatosRead   = "sindicatos:read"
	SindicatosWrite  = "sindicatos:write"
	SindicatosReview = "sindicatos:review"
	MembersRead      = "members:read"
	MembersWrite     = "members:write"
	DocumentsRead    = "documents:read"
	DocumentsWrite   = "documents:write"
	InvitesRead      = "invites:read"
	InvitesWrite     = "invites:write"
	TemplatesRead    = "templates:read"
	TemplatesWrite   = "templates:write"
	AuditRead        = "audit:read"
)

var matrix = map[models.Role][]string{
	models.RoleFenafarAdmin: {
		SindicatosRead, SindicatosWrite, SindicatosReview,
		MembersRead, MembersWrite,
		DocumentsRead, DocumentsWrite,
		InvitesRead, InvitesWrite,
		TemplatesRead, TemplatesWrite,
		AuditRead,
	},
	models.RoleSindicatoAdmin: {
		SindicatosRead, SindicatosWrite,
		MembersRead, MembersWrite,
		DocumentsRead, DocumentsWrite,
		InvitesRead, InvitesWrite,
		AuditRead,
	},
	models.RoleMember: {
		SindicatosRead,
		DocumentsRead,
	},
}

// Checker answers permission questions from the static role matrix.
type Checker struct{}

func (Checker) Can(role models.Role, permKey string) bool {
	for _, p := range matrix[role] {
		if p == permKey {
			return true
		}
	}
	return false
}

// Permissions lists what a role may do, for the /me endpoint and the UI menu.
func (Checker) Permissions(role models.Role) []string {
	out := make([]string, len(matrix[role]))
	copy(out, matrix[role])
	return out
}

// TenantScope returns the union a user is confined to. Federation admins are
// not confined and get ok=false.
func TenantScope(u models.User) (sindicatoID string, ok bool) {
	if u.Role == models.RoleFenafarAdmin {
		return "", false
	}
	if u.SindicatoID == nil {
		// a non-federation user without a union can see nothing
		return "-", true
	}
	return *u.SindicatoID, true
}

// CanAccessSindicato reports whether u may touch rows of the given union.
func CanAccessSindicato(u models.User, sindicatoID string) bool {
	scope, ok := TenantScope(u)
	return !ok || scope == sindicatoID
}

// Key composes a permission key like "members:read" from resource+action.
func Key(resource, action string) string { return strings.ToLower(resource + ":" + action) }
