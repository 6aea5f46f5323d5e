// Package registry resolves customer names to their AWS account scope.
package registry

import (
	"errors"
	"fmt"

	"github.com/costpilot/costpilot/internal/store"
)

var (
	// ErrUnknownCustomer is returned when no definition matches the name.
	ErrUnknownCustomer = errors.New("unknown customer")

	// ErrAmbiguousCustomer is returned when more than one definition matches.
	// The store enforces name uniqueness, so this signals a corrupted
	// registry, not user error.
	ErrAmbiguousCustomer = errors.New("ambiguous customer: registry consistency check failed")
)

// CustomerScope bundles everything the orchestrator needs to run a report
// for one customer: account ids, profile, CUR coordinates, and the cache
// partition key. It is an immutable value built once per run.
type CustomerScope struct {
	// CustomerID is the registry's internal id.
	CustomerID int64

	// Name is the unique customer name the scope was resolved from.
	Name string

	// PayerAccountID is the payer for this customer. Empty when no payer
	// mapping has been configured yet.
	PayerAccountID string

	// MemberAccountIDs are the linked accounts in scope, canonical 12-digit.
	MemberAccountIDs []string

	// Profile is the AWS profile used for this customer's API calls.
	Profile string

	// AthenaS3Bucket, CURDatabase, CURTable, CURRegion locate the customer's
	// Cost & Usage Report.
	AthenaS3Bucket string
	CURDatabase    string
	CURTable       string
	CURRegion      string

	// MinSpendUSD is the monthly spend threshold for recommendation rules.
	MinSpendUSD int64

	// AccountRegex filters member accounts by name during discovery.
	AccountRegex string
}

// PartitionKey returns the cache partition key for this customer. It is
// derived from the immutable customer id, never from mutable fields like
// the profile name, so cache keys stay stable across re-configuration.
func (s CustomerScope) PartitionKey() string {
	return fmt.Sprintf("cx-%d", s.CustomerID)
}

// Registry resolves customer names against the persisted definitions.
type Registry struct {
	store *store.Store
}

// New returns a Registry backed by st.
func New(st *store.Store) *Registry {
	return &Registry{store: st}
}

// Resolve looks up the named customer and assembles its scope.
// Returns ErrUnknownCustomer when no definition exists and
// ErrAmbiguousCustomer when the uniqueness invariant is violated.
func (r *Registry) Resolve(name string) (*CustomerScope, error) {
	n, err := r.store.CountCustomersByName(name)
	if err != nil {
		return nil, err
	}
	switch {
	case n == 0:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCustomer, name)
	case n > 1:
		return nil, fmt.Errorf("%w: %d definitions named %q", ErrAmbiguousCustomer, n, name)
	}

	c, err := r.store.GetCustomerByName(name)
	if err != nil {
		return nil, err
	}

	payers, err := r.store.GetPayerAccounts(c.ID)
	if err != nil {
		return nil, err
	}

	scope := &CustomerScope{
		CustomerID:     c.ID,
		Name:           c.Name,
		Profile:        c.AWSProfile,
		AthenaS3Bucket: c.AthenaS3Bucket,
		CURDatabase:    c.CURDatabase,
		CURTable:       c.CURTable,
		CURRegion:      c.CURRegion,
		MinSpendUSD:    c.MinSpend,
		AccountRegex:   c.AccountRegex,
	}
	for _, p := range payers {
		if scope.PayerAccountID == "" {
			scope.PayerAccountID = p.PayerID
		}
		scope.MemberAccountIDs = append(scope.MemberAccountIDs, p.AccountID)
	}
	return scope, nil
}

// Touch records that the customer was used by a run just now.
func (r *Registry) Touch(scope *CustomerScope) error {
	return r.store.TouchCustomer(scope.CustomerID)
}
