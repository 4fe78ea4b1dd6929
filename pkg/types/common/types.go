// Package common defines cross-layer primitive types shared by every layer
// of the ChemClassify engine.  No domain logic lives here, only plain data
// types that are safe to import from any layer without creating circular
// dependencies.
package common

import (
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for a UUID v4 identifier.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Metadata is an open-ended key-value bag attached to results and rule-set
// documents for caller-defined annotations (source file, ontology version).
type Metadata map[string]interface{}

// Timestamp is the canonical wall-clock type used in results and DTOs.
// Stored in UTC so serialized results compare bytewise across hosts.
type Timestamp = time.Time

// Now returns the current time in UTC, truncated to millisecond precision.
// Millisecond truncation keeps JSON round trips loss-free.
func Now() Timestamp {
	return time.Now().UTC().Truncate(time.Millisecond)
}
