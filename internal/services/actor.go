package services

import (
	"slices"

	"github.com/localnerve/assemblydb/internal/models"
)

// Capabilities checked by the core
const (
	CapMotionsManage       = "motions.can_manage"
	CapAssignmentsManage   = "assignments.can_manage"
	CapMotionsSupport      = "motions.can_support"
	CapAssignmentsNominate = "assignments.can_nominate"
)

// roleCapabilities maps Authorizer roles onto capabilities
var roleCapabilities = map[string][]string{
	"admin": {CapMotionsManage, CapAssignmentsManage, CapMotionsSupport, CapAssignmentsNominate},
	"user":  {CapMotionsSupport, CapAssignmentsNominate},
}

// Actor is the person performing an operation
type Actor struct {
	ID           string   `json:"id"`
	Roles        []string `json:"roles,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// NewActor resolves the capabilities granted by roles
func NewActor(id string, roles ...string) Actor {
	actor := Actor{ID: id, Roles: roles}
	for _, role := range roles {
		for _, capability := range roleCapabilities[role] {
			if !slices.Contains(actor.Capabilities, capability) {
				actor.Capabilities = append(actor.Capabilities, capability)
			}
		}
	}
	return actor
}

// HasCapability reports whether the actor holds the named capability
func (a Actor) HasCapability(name string) bool {
	return slices.Contains(a.Capabilities, name)
}

// CanManage reports whether the actor manages documents of kind
func (a Actor) CanManage(kind string) bool {
	return a.HasCapability(manageCapability(kind))
}

// CanParticipate reports whether the actor may support motions or stand
// for assignments
func (a Actor) CanParticipate(kind string) bool {
	return a.HasCapability(participateCapability(kind))
}

func manageCapability(kind string) string {
	if kind == models.KindAssignment {
		return CapAssignmentsManage
	}
	return CapMotionsManage
}

func participateCapability(kind string) string {
	if kind == models.KindAssignment {
		return CapAssignmentsNominate
	}
	return CapMotionsSupport
}
