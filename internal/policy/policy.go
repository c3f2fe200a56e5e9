// Package policy decides allow/deny over identities and ownership that were
// already resolved. Nothing here performs I/O.
package policy

import (
	"github.com/GoPolymarket/panelgate/internal/model"
)

// Denial reasons. They land in audit details, never in responses.
const (
	ReasonOwnerMismatch    = "owner_mismatch"
	ReasonNotSelf          = "not_self"
	ReasonPrivilegedField  = "privileged_field"
	ReasonSelfDelete       = "self_delete"
	ReasonAdminOnly        = "admin_only"
	ReasonMissingOwnership = "missing_ownership"
)

type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// CanModify: admin, or the user recorded as created_by.
func CanModify(actor model.Actor, ownerID string) Decision {
	if actor.IsAdmin() {
		return allow
	}
	if ownerID == "" {
		return deny(ReasonMissingOwnership)
	}
	if actor.ID != "" && actor.ID == ownerID {
		return allow
	}
	return deny(ReasonOwnerMismatch)
}

// CanView uses the modify rule: members only see records they created.
func CanView(actor model.Actor, ownerID string) Decision {
	return CanModify(actor, ownerID)
}

// CanViewProfile: self-or-admin. Also the rule for profile updates.
func CanViewProfile(actor model.Actor, targetID string) Decision {
	if actor.IsAdmin() {
		return allow
	}
	if actor.ID != "" && actor.ID == targetID {
		return allow
	}
	return deny(ReasonNotSelf)
}

// CanChangePrivileged guards fields such as role.
func CanChangePrivileged(actor model.Actor) Decision {
	if actor.IsAdmin() {
		return allow
	}
	return deny(ReasonPrivilegedField)
}

// CanDeleteProfile: admins delete other users' profiles. Nobody deletes
// their own, admins included.
func CanDeleteProfile(actor model.Actor, targetID string) Decision {
	if actor.ID != "" && actor.ID == targetID {
		return deny(ReasonSelfDelete)
	}
	if !actor.IsAdmin() {
		return deny(ReasonAdminOnly)
	}
	return allow
}

// ForAction picks the rule that applies to a descriptor and action.
func ForAction(access model.Access, action model.Action, actor model.Actor, own model.Ownership) Decision {
	if access == model.AccessSelfOrAdmin {
		switch action {
		case model.ActionDelete:
			return CanDeleteProfile(actor, own.ID)
		default:
			return CanViewProfile(actor, own.ID)
		}
	}
	if action == model.ActionRead {
		return CanView(actor, own.OwnerID)
	}
	return CanModify(actor, own.OwnerID)
}
