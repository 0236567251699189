package authz

import "sync/atomic"

// Operation is the kind of action a caller wants to perform. The set is
// extensible: tables may declare additional kinds beyond the four below.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Principal is a verified identity: who the caller is and which role they
// hold. It is built per request from an already-verified credential and
// never persisted here.
type Principal struct {
	Subject string
	Role    string
}

// DenyReason explains a deny so callers can log the two cases differently:
// a missing rule usually means a deployment misconfiguration, a failed
// ownership check is ordinary.
type DenyReason string

const (
	ReasonNoRuleDefined DenyReason = "no_rule_defined"
	ReasonNotOwner      DenyReason = "not_owner"
)

// Decision is the gate's verdict. Deny is a normal return value, never an
// error.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow is the positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny builds a negative decision with the given reason.
func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// ResourceHint optionally carries resource attributes the gate may consult,
// currently only the owner subject for owner-only rules.
type ResourceHint struct {
	Owner string
}

// Gate maps (role, operation) pairs to decisions against an immutable
// permission table. Every pair not explicitly listed denies
// (default-deny). The gate holds no other state and needs no locking;
// Swap atomically replaces the whole table, partial edits do not exist.
type Gate struct {
	table atomic.Pointer[Table]
}

// NewGate builds a gate over the given table.
func NewGate(t *Table) *Gate {
	g := &Gate{}
	g.table.Store(t)
	return g
}

// Swap atomically replaces the permission table. In-flight Authorize calls
// finish against the table they started with.
func (g *Gate) Swap(t *Table) {
	g.table.Store(t)
}

// Authorize decides whether the principal may perform the operation. It is
// a pure function of the current table and its inputs; it never inspects
// the credential the principal was built from.
func (g *Gate) Authorize(p Principal, op Operation, hint *ResourceHint) Decision {
	rule, ok := g.table.Load().Rule(p.Role, op)
	if !ok {
		return Deny(ReasonNoRuleDefined)
	}
	if rule.OwnerOnly {
		if hint == nil || p.Subject == "" || p.Subject != hint.Owner {
			return Deny(ReasonNotOwner)
		}
	}
	return Allow()
}
