// Package pricing answers price lookups against the read-only reference
// tables (instance pricing and Graviton equivalence) used during report
// enrichment.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/costpilot/costpilot/internal/store"
)

// ErrNoPrice is returned when the reference tables have no row for a lookup.
var ErrNoPrice = errors.New("no price data")

// Service resolves prices and Graviton equivalents.
type Service struct {
	store *store.Store
}

// NewService returns a Service backed by st.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// InstanceFamily extracts the family from an instance type:
// "m5.xlarge" → "m5". Returns the input unchanged when it has no size suffix.
func InstanceFamily(instanceType string) string {
	if i := strings.IndexByte(instanceType, '.'); i > 0 {
		return instanceType[:i]
	}
	return instanceType
}

// InstanceSize extracts the size from an instance type:
// "m5.xlarge" → "xlarge". Empty when the type has no size suffix.
func InstanceSize(instanceType string) string {
	if i := strings.IndexByte(instanceType, '.'); i >= 0 && i+1 < len(instanceType) {
		return instanceType[i+1:]
	}
	return ""
}

// OnDemandPrice returns the hourly on-demand price for an instance type in a
// location. ErrNoPrice when the pricing table has no matching row.
func (s *Service) OnDemandPrice(instanceType, location string) (decimal.Decimal, error) {
	p, err := s.store.GetInstancePrice(instanceType, location)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w for %s in %s", ErrNoPrice, instanceType, location)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(p.ODPrice), nil
}

// GravitonEquivalent maps an x86 instance type to its default Graviton
// equivalent type, preserving the size: "m5.xlarge" → "m6g.xlarge".
// ErrNoPrice when the family has no mapping.
func (s *Service) GravitonEquivalent(instanceType string) (string, error) {
	family := InstanceFamily(instanceType)
	g, err := s.store.GetGravitonEquivalent(family)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: no graviton equivalent for family %s", ErrNoPrice, family)
	}
	if err != nil {
		return "", err
	}
	size := InstanceSize(instanceType)
	if size == "" {
		return g.Graviton, nil
	}
	return g.Graviton + "." + size, nil
}

// GravitonSavings computes the hourly on-demand saving of moving
// instanceType to its Graviton equivalent in location. The result can be
// negative when the Graviton variant is more expensive.
func (s *Service) GravitonSavings(instanceType, location string) (decimal.Decimal, string, error) {
	equivalent, err := s.GravitonEquivalent(instanceType)
	if err != nil {
		return decimal.Zero, "", err
	}

	current, err := s.OnDemandPrice(instanceType, location)
	if err != nil {
		return decimal.Zero, "", err
	}
	target, err := s.OnDemandPrice(equivalent, location)
	if err != nil {
		return decimal.Zero, "", err
	}

	return current.Sub(target), equivalent, nil
}
