package policy

import (
	"fmt"

	"github.com/mwantia/modbot/internal/event"
)

// Permission is the role level a command requires.
type Permission int

const (
	PermissionNone Permission = iota
	// PermissionRestricted is met by the restricted role or the elevated role.
	PermissionRestricted
	PermissionElevated
)

func (p Permission) String() string {
	switch p {
	case PermissionNone:
		return "none"
	case PermissionRestricted:
		return "restricted"
	case PermissionElevated:
		return "elevated"
	default:
		return fmt.Sprintf("permission(%d)", int(p))
	}
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonInsufficientRole
	ReasonRestricted
	ReasonSelfOnly
	ReasonFeatureDisabled
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInsufficientRole:
		return "insufficient_role"
	case ReasonRestricted:
		return "restricted"
	case ReasonSelfOnly:
		return "self_only"
	case ReasonFeatureDisabled:
		return "feature_disabled"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Requirement is what a command asks of the gate.
type Requirement struct {
	Permission    Permission
	RequiresStore bool
	SelfTarget    bool
}

// TagTarget carries the parts of a tag the gate looks at.
type TagTarget struct {
	CreatorID  string
	Restricted bool
}

// Target is what an invocation acts on. Either field may be empty.
type Target struct {
	Tag      *TagTarget
	MemberID string
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allow and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return "denied: " + e.Reason.String()
}

// Gate evaluates permission rules. It holds no state besides its configuration.
type Gate struct {
	ElevatedRoleID     string
	RestrictedRoleID   string
	PersistenceEnabled bool
}

func (g *Gate) IsElevated(actor event.Actor) bool {
	return actor.HasRole(g.ElevatedRoleID)
}

func (g *Gate) meets(actor event.Actor, p Permission) bool {
	switch p {
	case PermissionNone:
		return true
	case PermissionRestricted:
		return g.IsElevated(actor) || actor.HasRole(g.RestrictedRoleID)
	default:
		return g.IsElevated(actor)
	}
}

// Check applies the rules in order; the first deny wins.
func (g *Gate) Check(actor event.Actor, req Requirement, target *Target) Decision {
	if req.RequiresStore && !g.PersistenceEnabled {
		return Deny(ReasonFeatureDisabled)
	}
	if !g.meets(actor, req.Permission) {
		return Deny(ReasonInsufficientRole)
	}
	if target == nil {
		return Allow()
	}
	if tag := target.Tag; tag != nil && tag.Restricted {
		if actor.ID != tag.CreatorID && !g.IsElevated(actor) {
			return Deny(ReasonRestricted)
		}
	}
	if req.SelfTarget && target.MemberID != "" && target.MemberID != actor.ID {
		return Deny(ReasonSelfOnly)
	}
	return Allow()
}
