// Package changeset defines the value that is the explicit contract
// between the Data File Store and the Log Store (see the internal/changeset
// entry in DESIGN.md): every write returns a ChangeSet, and the log store
// appends it verbatim.
package changeset

import "github.com/amacd31/hydrotsdb/internal/record"

// ChangeSet is the pair of ordered lists a single logical write produces.
// Created holds every new on-disk triple; Updated holds the prior triple
// of anything that write overwrote.
type ChangeSet struct {
	Created []record.Record
	Updated []record.Record
}

// Empty reports whether this change set carries no entries at all.
func (c ChangeSet) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0
}

// AppendCreated records a new on-disk triple.
func (c *ChangeSet) AppendCreated(r record.Record) {
	c.Created = append(c.Created, r)
}

// AppendUpdated records the prior triple of something being overwritten.
func (c *ChangeSet) AppendUpdated(r record.Record) {
	c.Updated = append(c.Updated, r)
}

// Merge appends other's entries onto c, preserving order.
func (c *ChangeSet) Merge(other ChangeSet) {
	c.Created = append(c.Created, other.Created...)
	c.Updated = append(c.Updated, other.Updated...)
}
