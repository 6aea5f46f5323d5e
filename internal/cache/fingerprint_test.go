package cache

import (
	"testing"

	"github.com/costpilot/costpilot/internal/models"
)

func baseQuery() models.Query {
	return models.Query{
		Provider:       models.ProviderCostExplorer,
		PartitionType:  "ce-monthly",
		PayerAccountID: "111122223333",
		AccountIDs:     []string{"111122223333", "444455556666"},
		Start:          "2026-07-01",
		End:            "2026-08-01",
		Region:         "us-east-1",
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a, err := Fingerprint(baseQuery())
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := Fingerprint(baseQuery())
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Errorf("identical queries produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d; want 64 hex chars", len(a))
	}
}

func TestFingerprint_SensitiveToEveryParameter(t *testing.T) {
	base, err := Fingerprint(baseQuery())
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	mutations := map[string]func(*models.Query){
		"start date":     func(q *models.Query) { q.Start = "2026-06-01" },
		"end date":       func(q *models.Query) { q.End = "2026-09-01" },
		"partition type": func(q *models.Query) { q.PartitionType = "ce-daily" },
		"payer":          func(q *models.Query) { q.PayerAccountID = "999988887777" },
		"account set":    func(q *models.Query) { q.AccountIDs = []string{"111122223333"} },
		"region":         func(q *models.Query) { q.Region = "eu-west-1" },
		"tag filter":     func(q *models.Query) { q.TagFilters = map[string]string{"team": "core"} },
		"sql":            func(q *models.Query) { q.SQL = "SELECT 1" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			q := baseQuery()
			mutate(&q)
			got, err := Fingerprint(q)
			if err != nil {
				t.Fatalf("Fingerprint: %v", err)
			}
			if got == base {
				t.Errorf("changing %s did not change the fingerprint", name)
			}
		})
	}
}

func TestFingerprint_PartitionTypeSeparatesSameBody(t *testing.T) {
	// Two queries that differ only in partition type must never collide,
	// even though the rest of the encoded body is identical.
	a := baseQuery()
	b := baseQuery()
	b.PartitionType = "other"

	fa, _ := Fingerprint(a)
	fb, _ := Fingerprint(b)
	if fa == fb {
		t.Error("different partition types produced the same fingerprint")
	}
}
