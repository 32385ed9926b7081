// Package record defines the data model moving through a bridginghub
// pipeline: string-keyed records, id-keyed batches, delivery statuses, and
// the customizable field-name table shared by all stages.
package record

import "sort"

// Status values stamped onto records as they move through the pipeline.
// A record carries at most one status at a time; transitions are monotonic
// except for re-staging after a failed delivery.
const (
	// StatusIn marks a freshly collected record
	StatusIn = "in"
	// StatusCached marks a record durably staged, not yet delivered
	StatusCached = "cached"
	// StatusPending is accepted as an alias of StatusCached on records
	// staged again after an earlier delivery attempt
	StatusPending = "pending"
	// StatusOut marks a record accepted by a sink
	StatusOut = "out"
	// StatusDone marks a record durably archived
	StatusDone = "done"
	// StatusBroken marks a permanently failed record moved to junk
	StatusBroken = "broken"
	// StatusFailed marks a record rejected by a sink, candidate for junk
	StatusFailed = "failed"
)

// Record is a single measurement: a mapping from field name to value.
// Literal field names are indirected through a Names table so stage
// implementations agree on semantics regardless of the keys in use.
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Batch maps record-id to Record and is the unit exchanged between stages.
// Ids are unique within a pass; map iteration order is not significant.
type Batch map[string]Record

// Clone returns a deep copy of the batch. Subscribers receive clones so no
// two stages alias the same underlying maps.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	for id, rec := range b {
		out[id] = rec.Clone()
	}
	return out
}

// IDs returns the record-ids in sorted order. Stages that need a
// deterministic iteration order (senders, tests) use this.
func (b Batch) IDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
