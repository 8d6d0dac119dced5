package auth

import "tazkara/internal/models"

// Resources and actions of the authorization policy.
const (
	ResourceEvents      = "events"
	ResourceCategories  = "categories"
	ResourceBookings    = "bookings"
	ResourceUsers       = "users"
	ResourcePermissions = "permissions"

	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Permission is one row of the policy table: a role's allowed actions on a
// resource.
type Permission struct {
	Role     string   `json:"role"`
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// Policy is the single source of truth for role-based authorization.
// Every protected route consults it through the Authorize middleware instead
// of carrying its own role list.
var Policy = []Permission{
	{Role: models.RoleUser, Resource: ResourceBookings, Actions: []string{ActionCreate, ActionRead, ActionDelete}},

	{Role: models.RoleOrganizer, Resource: ResourceBookings, Actions: []string{ActionCreate, ActionRead, ActionDelete}},
	{Role: models.RoleOrganizer, Resource: ResourceEvents, Actions: []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
	{Role: models.RoleOrganizer, Resource: ResourceCategories, Actions: []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},

	{Role: models.RoleAdmin, Resource: ResourceBookings, Actions: []string{ActionCreate, ActionRead, ActionDelete}},
	{Role: models.RoleAdmin, Resource: ResourceEvents, Actions: []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
	{Role: models.RoleAdmin, Resource: ResourceCategories, Actions: []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
	{Role: models.RoleAdmin, Resource: ResourceUsers, Actions: []string{ActionRead, ActionUpdate, ActionDelete}},
	{Role: models.RoleAdmin, Resource: ResourcePermissions, Actions: []string{ActionRead}},
}

// Allowed reports whether role may perform action on resource.
func Allowed(role, resource, action string) bool {
	for _, p := range Policy {
		if p.Role != role || p.Resource != resource {
			continue
		}
		for _, a := range p.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}
