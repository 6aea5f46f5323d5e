package models

// Query carries every parameter that shapes a provider fetch. It doubles as
// the cache-fingerprint input: any field change must force a fresh fetch, so
// callers are required to resolve relative time windows ("last month") into
// absolute Start/End dates before building a Query.
type Query struct {
	// Provider that will execute this query.
	Provider Provider `json:"provider"`

	// PartitionType labels the provider/query shape for cache partitioning,
	// e.g. "ce-monthly", "ta-checks", "co-ec2", "cur-graviton-ec2".
	PartitionType string `json:"partition_type"`

	// PayerAccountID and AccountIDs define the account scope.
	PayerAccountID string   `json:"payer_account_id"`
	AccountIDs     []string `json:"account_ids,omitempty"`

	// Start and End are absolute dates ("2006-01-02"), half-open [Start, End).
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// Region the query runs in. Global providers pin this at plan time.
	Region string `json:"region,omitempty"`

	// TagFilters restricts results to resources carrying these tag values.
	TagFilters map[string]string `json:"tag_filters,omitempty"`

	// SQL is the Athena statement for CUR queries; empty for other providers.
	SQL string `json:"sql,omitempty"`

	// CURDatabase and CURTable locate the Cost & Usage Report in Athena.
	CURDatabase string `json:"cur_database,omitempty"`
	CURTable    string `json:"cur_table,omitempty"`

	// ResultBucket is the S3 bucket Athena writes query results to.
	ResultBucket string `json:"result_bucket,omitempty"`
}
