package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ---------------------------------------------------------------------------
// Customer operations
// ---------------------------------------------------------------------------

// UpsertCustomer inserts c or, when a customer with the same name exists,
// updates its mutable fields. The customer ID and create_time are never
// changed by an update, which keeps cache partition keys stable across
// re-configuration.
func (s *Store) UpsertCustomer(c *Customer) (int64, error) {
	now := time.Now().UTC()
	if c.CreateTime.IsZero() {
		c.CreateTime = now
	}
	if c.LastUsedTime.IsZero() {
		c.LastUsedTime = now
	}

	query := `
        INSERT INTO customer_definitions (
            cx_name, email_address, create_time, last_used_time, aws_profile,
            athena_s3_bucket, cur_db_name, cur_db_table, cur_region,
            min_spend, acc_regex
        ) VALUES (
            :cx_name, :email_address, :create_time, :last_used_time, :aws_profile,
            :athena_s3_bucket, :cur_db_name, :cur_db_table, :cur_region,
            :min_spend, :acc_regex
        )
        ON CONFLICT(cx_name) DO UPDATE SET
            email_address    = excluded.email_address,
            last_used_time   = excluded.last_used_time,
            aws_profile      = excluded.aws_profile,
            athena_s3_bucket = excluded.athena_s3_bucket,
            cur_db_name      = excluded.cur_db_name,
            cur_db_table     = excluded.cur_db_table,
            cur_region       = excluded.cur_region,
            min_spend        = excluded.min_spend,
            acc_regex        = excluded.acc_regex`

	if _, err := s.db.NamedExec(query, c); err != nil {
		return 0, fmt.Errorf("upsert customer %q: %w", c.Name, err)
	}

	var id int64
	if err := s.db.Get(&id, `SELECT cx_id FROM customer_definitions WHERE cx_name = ?`, c.Name); err != nil {
		return 0, fmt.Errorf("resolve customer id for %q: %w", c.Name, err)
	}
	c.ID = id
	return id, nil
}

// GetCustomerByName returns the customer named name, or ErrNotFound.
func (s *Store) GetCustomerByName(name string) (*Customer, error) {
	var c Customer
	err := s.db.Get(&c, `SELECT * FROM customer_definitions WHERE cx_name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %q: %w", name, err)
	}
	return &c, nil
}

// CountCustomersByName reports how many definitions share name. More than one
// violates the uniqueness invariant and is treated by the registry as a
// consistency failure, not user error.
func (s *Store) CountCustomersByName(name string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM customer_definitions WHERE cx_name = ?`, name); err != nil {
		return 0, fmt.Errorf("count customers %q: %w", name, err)
	}
	return n, nil
}

// ListCustomers returns every customer ordered by name.
func (s *Store) ListCustomers() ([]Customer, error) {
	customers := []Customer{}
	if err := s.db.Select(&customers, `SELECT * FROM customer_definitions ORDER BY cx_name`); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// DeleteCustomer removes the named customer. Payer accounts and cache
// entries cascade: they must not outlive their owning definition.
func (s *Store) DeleteCustomer(name string) error {
	res, err := s.db.Exec(`DELETE FROM customer_definitions WHERE cx_name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete customer %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchCustomer updates last_used_time to now.
func (s *Store) TouchCustomer(id int64) error {
	_, err := s.db.Exec(
		`UPDATE customer_definitions SET last_used_time = ? WHERE cx_id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touch customer %d: %w", id, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Payer account operations
// ---------------------------------------------------------------------------

// PutPayerAccount inserts or replaces the payer→member mapping for a
// customer. payer_id is the table's primary key, so a payer can belong to at
// most one customer across the whole registry; re-pointing a payer at a
// different customer is an explicit overwrite.
func (s *Store) PutPayerAccount(p *PayerAccount) error {
	query := `
        INSERT INTO payer_accounts (payer_id, account_id, cx_id)
        VALUES (:payer_id, :account_id, :cx_id)
        ON CONFLICT(payer_id) DO UPDATE SET
            account_id = excluded.account_id,
            cx_id      = excluded.cx_id`
	if _, err := s.db.NamedExec(query, p); err != nil {
		return fmt.Errorf("put payer account %q: %w", p.PayerID, err)
	}
	return nil
}

// GetPayerAccounts returns all payer mappings for a customer, ordered by payer.
func (s *Store) GetPayerAccounts(customerID int64) ([]PayerAccount, error) {
	payers := []PayerAccount{}
	err := s.db.Select(&payers,
		`SELECT * FROM payer_accounts WHERE cx_id = ? ORDER BY payer_id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("get payer accounts for customer %d: %w", customerID, err)
	}
	return payers, nil
}

// ---------------------------------------------------------------------------
// Report catalog operations
// ---------------------------------------------------------------------------

// SeedAvailableReports inserts catalog rows, skipping names already present.
// The catalog is reference data: existing rows are never mutated here.
func (s *Store) SeedAvailableReports(reports []AvailableReport) error {
	query := `
        INSERT INTO available_reports (
            report_name, report_description, report_provider,
            service_name, common_name, display, configurable
        ) VALUES (
            :report_name, :report_description, :report_provider,
            :service_name, :common_name, :display, :configurable
        )
        ON CONFLICT(report_name) DO NOTHING`
	for i := range reports {
		if _, err := s.db.NamedExec(query, &reports[i]); err != nil {
			return fmt.Errorf("seed report %q: %w", reports[i].Name, err)
		}
	}
	return nil
}

// ListAvailableReports returns the catalog ordered by name.
func (s *Store) ListAvailableReports() ([]AvailableReport, error) {
	reports := []AvailableReport{}
	if err := s.db.Select(&reports, `SELECT * FROM available_reports ORDER BY report_name`); err != nil {
		return nil, fmt.Errorf("list available reports: %w", err)
	}
	return reports, nil
}

// ---------------------------------------------------------------------------
// Cache operations
// ---------------------------------------------------------------------------

// GetCacheEntry returns the live entry for (customer, partition, fingerprint),
// or ErrNotFound on a miss.
func (s *Store) GetCacheEntry(customerID int64, partitionType, fingerprint string) (*CacheEntry, error) {
	var e CacheEntry
	err := s.db.Get(&e, `
        SELECT * FROM cache_entries
        WHERE cx_id = ? AND partition_type = ? AND fingerprint = ?`,
		customerID, partitionType, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s/%s: %w", partitionType, fingerprint, err)
	}
	return &e, nil
}

// PutCacheEntry stores payload under (customer, partition, fingerprint),
// replacing any previous entry for the same tuple so at most one live entry
// exists per fingerprint.
func (s *Store) PutCacheEntry(customerID int64, partitionType, fingerprint string, payload []byte) error {
	query := `
        INSERT INTO cache_entries (cx_id, partition_type, fingerprint, payload, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(cx_id, partition_type, fingerprint) DO UPDATE SET
            payload    = excluded.payload,
            created_at = excluded.created_at`
	if _, err := s.db.Exec(query, customerID, partitionType, fingerprint, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("put cache entry %s/%s: %w", partitionType, fingerprint, err)
	}
	return nil
}

// PurgeCache removes every cache entry owned by the customer and returns the
// number of entries removed.
func (s *Store) PurgeCache(customerID int64) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE cx_id = ?`, customerID)
	if err != nil {
		return 0, fmt.Errorf("purge cache for customer %d: %w", customerID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ---------------------------------------------------------------------------
// Pricing reference data
// ---------------------------------------------------------------------------

// GetInstancePrice returns pricing for an instance type in a location.
func (s *Store) GetInstancePrice(instanceType, location string) (*InstancePrice, error) {
	var p InstancePrice
	err := s.db.Get(&p, `
        SELECT * FROM instance_pricing WHERE instance_type = ? AND location = ?`,
		instanceType, location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get price for %s in %s: %w", instanceType, location, err)
	}
	return &p, nil
}

// PutInstancePrice inserts or replaces one pricing row. Used by the pricing
// data importer.
func (s *Store) PutInstancePrice(p *InstancePrice) error {
	query := `
        INSERT INTO instance_pricing (family, instance_type, location, od_price_per_unit, ri_price_per_unit)
        VALUES (:family, :instance_type, :location, :od_price_per_unit, :ri_price_per_unit)
        ON CONFLICT(instance_type, location) DO UPDATE SET
            family            = excluded.family,
            od_price_per_unit = excluded.od_price_per_unit,
            ri_price_per_unit = excluded.ri_price_per_unit`
	if _, err := s.db.NamedExec(query, p); err != nil {
		return fmt.Errorf("put price for %s: %w", p.InstanceType, err)
	}
	return nil
}

// GetGravitonEquivalent returns the Graviton mapping for an instance family.
func (s *Store) GetGravitonEquivalent(family string) (*GravitonEquivalent, error) {
	var g GravitonEquivalent
	err := s.db.Get(&g, `SELECT * FROM graviton_equivalents WHERE family = ?`, family)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get graviton equivalent for %s: %w", family, err)
	}
	return &g, nil
}

// PutGravitonEquivalent inserts or replaces one family mapping.
func (s *Store) PutGravitonEquivalent(g *GravitonEquivalent) error {
	query := `
        INSERT INTO graviton_equivalents (family, generation, graviton)
        VALUES (:family, :generation, :graviton)
        ON CONFLICT(family) DO UPDATE SET
            generation = excluded.generation,
            graviton   = excluded.graviton`
	if _, err := s.db.NamedExec(query, g); err != nil {
		return fmt.Errorf("put graviton equivalent for %s: %w", g.Family, err)
	}
	return nil
}
