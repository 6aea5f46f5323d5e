package registry

import (
	"errors"
	"testing"

	"github.com/costpilot/costpilot/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func TestResolve_UnknownCustomer(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Resolve("nobody")
	if !errors.Is(err, ErrUnknownCustomer) {
		t.Errorf("err = %v; want ErrUnknownCustomer", err)
	}
}

func TestResolve_FullScope(t *testing.T) {
	reg, st := newTestRegistry(t)

	id, err := st.UpsertCustomer(&store.Customer{
		Name:           "acme",
		AWSProfile:     "acme-profile",
		AthenaS3Bucket: "acme-athena-results",
		CURDatabase:    "cur_db",
		CURTable:       "cur_table",
		CURRegion:      "eu-west-1",
		MinSpend:       500,
		AccountRegex:   "^prod-",
	})
	if err != nil {
		t.Fatalf("UpsertCustomer: %v", err)
	}
	for _, p := range []store.PayerAccount{
		{PayerID: "111122223333", AccountID: "111122223333", CustomerID: id},
		{PayerID: "444455556666", AccountID: "444455556666", CustomerID: id},
	} {
		if err := st.PutPayerAccount(&p); err != nil {
			t.Fatalf("PutPayerAccount: %v", err)
		}
	}

	scope, err := reg.Resolve("acme")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if scope.CustomerID != id {
		t.Errorf("CustomerID = %d; want %d", scope.CustomerID, id)
	}
	if scope.Profile != "acme-profile" {
		t.Errorf("Profile = %q; want acme-profile", scope.Profile)
	}
	if scope.PayerAccountID != "111122223333" {
		t.Errorf("PayerAccountID = %q; want first payer", scope.PayerAccountID)
	}
	if len(scope.MemberAccountIDs) != 2 {
		t.Errorf("MemberAccountIDs = %v; want 2 accounts", scope.MemberAccountIDs)
	}
	if scope.CURDatabase != "cur_db" || scope.CURTable != "cur_table" || scope.CURRegion != "eu-west-1" {
		t.Errorf("CUR coordinates lost: %+v", scope)
	}
	if scope.MinSpendUSD != 500 {
		t.Errorf("MinSpendUSD = %d; want 500", scope.MinSpendUSD)
	}
}

func TestPartitionKey_StableAcrossReconfiguration(t *testing.T) {
	reg, st := newTestRegistry(t)

	if _, err := st.UpsertCustomer(&store.Customer{Name: "acme", AWSProfile: "old"}); err != nil {
		t.Fatalf("UpsertCustomer: %v", err)
	}
	before, err := reg.Resolve("acme")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Mutable fields change; the partition key must not.
	if _, err := st.UpsertCustomer(&store.Customer{Name: "acme", AWSProfile: "new", MinSpend: 9000}); err != nil {
		t.Fatalf("UpsertCustomer (update): %v", err)
	}
	after, err := reg.Resolve("acme")
	if err != nil {
		t.Fatalf("Resolve (after update): %v", err)
	}

	if before.PartitionKey() != after.PartitionKey() {
		t.Errorf("partition key changed across reconfiguration: %q -> %q",
			before.PartitionKey(), after.PartitionKey())
	}
}

func TestTouch_UpdatesLastUsed(t *testing.T) {
	reg, st := newTestRegistry(t)

	if _, err := st.UpsertCustomer(&store.Customer{Name: "acme", AWSProfile: "p"}); err != nil {
		t.Fatalf("UpsertCustomer: %v", err)
	}
	scope, err := reg.Resolve("acme")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	before, _ := st.GetCustomerByName("acme")
	if err := reg.Touch(scope); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	after, _ := st.GetCustomerByName("acme")

	if after.LastUsedTime.Before(before.LastUsedTime) {
		t.Errorf("LastUsedTime went backwards: %v -> %v", before.LastUsedTime, after.LastUsedTime)
	}
}
