package store

import "time"

// Customer is one row of customer_definitions: the identity of a tenant the
// tool can generate reports for. Created on first configuration, mutated on
// re-configuration, removed only by an explicit delete.
type Customer struct {
	ID           int64     `db:"cx_id"          json:"id"`
	Name         string    `db:"cx_name"        json:"name"`
	Email        string    `db:"email_address"  json:"email"`
	CreateTime   time.Time `db:"create_time"    json:"create_time"`
	LastUsedTime time.Time `db:"last_used_time" json:"last_used_time"`
	AWSProfile   string    `db:"aws_profile"    json:"aws_profile"`

	// AthenaS3Bucket is where Athena writes CUR query results.
	AthenaS3Bucket string `db:"athena_s3_bucket" json:"athena_s3_bucket"`

	// CUR coordinates: Athena database, table, and region.
	CURDatabase string `db:"cur_db_name" json:"cur_db_name"`
	CURTable    string `db:"cur_db_table" json:"cur_db_table"`
	CURRegion   string `db:"cur_region"  json:"cur_region"`

	// MinSpend is the monthly USD threshold below which recommendation rules
	// skip a resource.
	MinSpend int64 `db:"min_spend" json:"min_spend"`

	// AccountRegex filters member accounts by name during discovery.
	AccountRegex string `db:"acc_regex" json:"acc_regex"`
}

// PayerAccount links a payer account to a member account for one customer.
// payer_id is the primary key: a payer belongs to at most one customer
// across the whole registry.
type PayerAccount struct {
	PayerID    string `db:"payer_id"   json:"payer_id"`
	AccountID  string `db:"account_id" json:"account_id"`
	CustomerID int64  `db:"cx_id"      json:"customer_id"`
}

// AvailableReport is one row of the read-only report catalog.
type AvailableReport struct {
	ID           int64  `db:"report_id"          json:"id"`
	Name         string `db:"report_name"        json:"name"`
	Description  string `db:"report_description" json:"description"`
	Provider     string `db:"report_provider"    json:"provider"`
	ServiceName  string `db:"service_name"       json:"service_name"`
	CommonName   string `db:"common_name"        json:"common_name"`
	Display      bool   `db:"display"            json:"display"`
	Configurable bool   `db:"configurable"       json:"configurable"`
}

// CacheEntry is one cached provider result, content-addressed by the
// fingerprint of its query parameters. At most one live entry exists per
// (customer, partition_type, fingerprint).
type CacheEntry struct {
	ID            int64     `db:"cache_id"       json:"id"`
	CustomerID    int64     `db:"cx_id"          json:"customer_id"`
	PartitionType string    `db:"partition_type" json:"partition_type"`
	Fingerprint   string    `db:"fingerprint"    json:"fingerprint"`
	Payload       []byte    `db:"payload"        json:"-"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
}

// InstancePrice is read-only pricing reference data keyed by instance type.
type InstancePrice struct {
	Family       string  `db:"family"          json:"family"`
	InstanceType string  `db:"instance_type"   json:"instance_type"`
	Location     string  `db:"location"        json:"location"`
	ODPrice      float64 `db:"od_price_per_unit" json:"od_price_per_unit"`
	RIPrice      float64 `db:"ri_price_per_unit" json:"ri_price_per_unit"`
}

// GravitonEquivalent maps an x86 instance family to its default Graviton
// equivalent. Read-only lookup data consumed during report enrichment.
type GravitonEquivalent struct {
	Family     string `db:"family"     json:"family"`
	Generation string `db:"generation" json:"generation"`
	Graviton   string `db:"graviton"   json:"graviton"`
}
