// Package access holds the capability table that decides which callers may
// perform which action on which resource.
package access

import (
	"book-store/internal/domain"

	"github.com/google/uuid"
)

type Resource int

const (
	ResourceCustomer Resource = iota
	ResourceProduct
	ResourceSupplier
	ResourceTag
	ResourcePrice
	ResourceReview
	ResourceCart
	ResourceSale
	ResourceToken
)

type Action int

const (
	ActionList Action = iota
	ActionRetrieve
	ActionCreate
	ActionUpdate
	ActionPartialUpdate
	ActionDestroy
)

// Capability is the minimum identity level an action requires. Levels are
// ordered: Staff implies Authenticated implies Anonymous.
type Capability int

const (
	Anonymous Capability = iota
	Authenticated
	Staff
)

func (c Capability) String() string {
	switch c {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Staff:
		return "staff"
	default:
		return "unknown"
	}
}

// Caller is the identity attached to a request.
type Caller struct {
	CustomerID    uuid.UUID
	Role          domain.Role
	Authenticated bool
}

// AnonymousCaller is the identity of requests without a valid access token.
var AnonymousCaller = Caller{}

func (c Caller) Capability() Capability {
	switch {
	case !c.Authenticated:
		return Anonymous
	case c.Role == domain.RoleStaff:
		return Staff
	default:
		return Authenticated
	}
}

func (c Caller) IsStaff() bool {
	return c.Capability() == Staff
}

// Is reports whether the caller is the given customer.
func (c Caller) Is(customerID uuid.UUID) bool {
	return c.Authenticated && c.CustomerID == customerID
}

// Key identifies one row of the policy table.
type Key struct {
	Resource Resource
	Action   Action
}

// Policy maps every exposed (resource, action) pair to its capability.
// Pairs missing from the table are not exposed.
type Policy map[Key]Capability

// DefaultPolicy is the store's access table. Ownership rules (own account,
// own cart, own review) are enforced by the services on top of it.
func DefaultPolicy() Policy {
	return Policy{
		{ResourceCustomer, ActionList}:          Anonymous,
		{ResourceCustomer, ActionRetrieve}:      Anonymous,
		{ResourceCustomer, ActionCreate}:        Anonymous,
		{ResourceCustomer, ActionUpdate}:        Authenticated,
		{ResourceCustomer, ActionPartialUpdate}: Authenticated,
		{ResourceCustomer, ActionDestroy}:       Authenticated,

		{ResourceProduct, ActionList}:          Anonymous,
		{ResourceProduct, ActionRetrieve}:      Anonymous,
		{ResourceProduct, ActionCreate}:        Staff,
		{ResourceProduct, ActionUpdate}:        Staff,
		{ResourceProduct, ActionPartialUpdate}: Staff,
		{ResourceProduct, ActionDestroy}:       Staff,

		{ResourceSupplier, ActionList}:          Anonymous,
		{ResourceSupplier, ActionRetrieve}:      Anonymous,
		{ResourceSupplier, ActionCreate}:        Staff,
		{ResourceSupplier, ActionUpdate}:        Staff,
		{ResourceSupplier, ActionPartialUpdate}: Staff,
		{ResourceSupplier, ActionDestroy}:       Staff,

		{ResourceTag, ActionList}:     Anonymous,
		{ResourceTag, ActionRetrieve}: Anonymous,
		{ResourceTag, ActionCreate}:   Staff,
		{ResourceTag, ActionDestroy}:  Staff,

		{ResourcePrice, ActionList}:     Anonymous,
		{ResourcePrice, ActionRetrieve}: Anonymous,
		{ResourcePrice, ActionCreate}:   Staff,
		{ResourcePrice, ActionDestroy}:  Staff,

		{ResourceReview, ActionList}:          Anonymous,
		{ResourceReview, ActionRetrieve}:      Anonymous,
		{ResourceReview, ActionCreate}:        Anonymous,
		{ResourceReview, ActionUpdate}:        Authenticated,
		{ResourceReview, ActionPartialUpdate}: Authenticated,
		{ResourceReview, ActionDestroy}:       Authenticated,

		{ResourceCart, ActionRetrieve}: Authenticated,
		{ResourceCart, ActionCreate}:   Authenticated,

		{ResourceSale, ActionList}:     Authenticated,
		{ResourceSale, ActionRetrieve}: Authenticated,
		{ResourceSale, ActionCreate}:   Authenticated,

		// Exchanging an OAuth2 token for a JWT pair authenticates on its own.
		{ResourceToken, ActionCreate}: Anonymous,
	}
}

// Decision is the outcome of a policy lookup.
type Decision int

const (
	Allow Decision = iota
	// Unauthenticated means the caller must log in (401).
	Unauthenticated
	// Forbidden means the caller is known but lacks the capability (403).
	Forbidden
	// NotExposed means the pair has no entry in the table (405).
	NotExposed
)

// Decide checks the caller against the table entry for (resource, action).
func (p Policy) Decide(caller Caller, resource Resource, action Action) Decision {
	required, ok := p[Key{Resource: resource, Action: action}]
	if !ok {
		return NotExposed
	}
	if caller.Capability() >= required {
		return Allow
	}
	if !caller.Authenticated {
		return Unauthenticated
	}
	return Forbidden
}
