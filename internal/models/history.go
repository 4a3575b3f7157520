package models

import "time"

// SearchRecord captures a single listing search invocation. Identity is
// either a user id or an address-derived anonymous identity; the two never
// collide because anonymous identities carry a namespace prefix.
type SearchRecord struct {
	Identity    string            `json:"identity" dynamodbav:"identity"` // Partition Key
	SortKey     string            `json:"-" dynamodbav:"sk"`              // timestamp#record_id, orders the partition
	RecordID    string            `json:"record_id" dynamodbav:"record_id"`
	Params      map[string]string `json:"params" dynamodbav:"params"` // sparse, only supplied filters
	ResultCount int               `json:"result_count" dynamodbav:"result_count"`
	CreatedAt   time.Time         `json:"created_at" dynamodbav:"created_at"`
}
