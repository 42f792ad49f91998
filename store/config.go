package store

import "time"

// DynamoConfig holds configuration for the DynamoDB backend.
type DynamoConfig struct {
	// Table is the name of the node table.
	// Its key schema is pk (string, partition) + path (string, sort).
	// Default: "incargo_nodes"
	Table string

	// Namespace is the partition key value all nodes of one register share.
	// Separate registers can share a table under different namespaces.
	// Default: "incargo"
	Namespace string

	// BatchSize caps the writes sent in one BatchWriteItem call.
	// Default: 25
	// Max: 25
	BatchSize int

	// TransactLimit is the largest write that is sent as a single transaction.
	// Larger subtree replacements fall back to batches and are not atomic.
	// Default: 100
	// Max: 100
	TransactLimit int

	// MaxAttempts bounds retries of unprocessed batch items.
	// Default: 5
	MaxAttempts int

	// RetryDelay is the first back-off delay; it doubles on every retry.
	// Default: 50ms
	RetryDelay time.Duration
}

// DefaultDynamoConfig returns sensible defaults for a single register.
func DefaultDynamoConfig() DynamoConfig {
	return DynamoConfig{
		Table:         "incargo_nodes",
		Namespace:     "incargo",
		BatchSize:     25,
		TransactLimit: 100,
		MaxAttempts:   5,
		RetryDelay:    50 * time.Millisecond,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *DynamoConfig) validate() {
	if c.Table == "" {
		c.Table = "incargo_nodes"
	}
	if c.Namespace == "" {
		c.Namespace = "incargo"
	}
	if c.BatchSize < 1 || c.BatchSize > 25 {
		c.BatchSize = 25
	}
	if c.TransactLimit < 1 || c.TransactLimit > 100 {
		c.TransactLimit = 100
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 50 * time.Millisecond
	}
}
