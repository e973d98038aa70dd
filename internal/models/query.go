package models

import "time"

// Verbosity controls how much of an entry a query result carries.
type Verbosity string

const (
	VerbosityCompact  Verbosity = "compact"
	VerbosityStandard Verbosity = "standard"
	VerbosityFull     Verbosity = "full"
)

// ParseVerbosity validates a verbosity name. Empty selects standard.
func ParseVerbosity(s string) (Verbosity, bool) {
	switch Verbosity(s) {
	case "":
		return VerbosityStandard, true
	case VerbosityCompact, VerbosityStandard, VerbosityFull:
		return Verbosity(s), true
	}
	return "", false
}

// NoLimit disables the page size cap.
const NoLimit = -1

// QueryParams defines filters, pagination and rendering for an entry query.
type QueryParams struct {
	SearchQuery  string
	Level        Level
	Verbosity    Verbosity
	ContextLines int
	// Limit caps the page size. NoLimit returns everything; 0 returns no
	// entries but still reports TotalMatches.
	Limit  int
	Offset int
	// Latest pages from the newest entry backwards.
	Latest bool
	Since  time.Time
	Until  time.Time
}

// NewQueryParams returns params that match everything at standard verbosity.
func NewQueryParams() QueryParams {
	return QueryParams{
		Verbosity: VerbosityStandard,
		Limit:     NoLimit,
	}
}

// QueryResult is the page of rendered entries produced by a query.
type QueryResult struct {
	Entries      []RenderedEntry `json:"entries" msgpack:"entries"`
	TotalMatches int             `json:"total_matches" msgpack:"total_matches"`
	Truncated    bool            `json:"truncated" msgpack:"truncated"`
}

// RenderedEntry is the caller-facing projection of a LogEntry.
// Which optional fields are set depends on the verbosity.
type RenderedEntry struct {
	Index            int        `json:"index" msgpack:"index"`
	LogID            string     `json:"log_id,omitempty" msgpack:"log_id,omitempty"`
	Timestamp        *time.Time `json:"timestamp" msgpack:"timestamp"`
	Level            *Level     `json:"level" msgpack:"level"`
	Message          string     `json:"message" msgpack:"message"`
	MessageTruncated bool       `json:"message_truncated,omitempty" msgpack:"message_truncated,omitempty"`
	DataPreview      string     `json:"data_preview,omitempty" msgpack:"data_preview,omitempty"`
	Data             *DataNode  `json:"data,omitempty" msgpack:"data,omitempty"`
	Context          bool       `json:"context,omitempty" msgpack:"context,omitempty"`
	Raw              string     `json:"raw,omitempty" msgpack:"raw,omitempty"`
}

// DataNode is one node of an expanded payload tree.
type DataNode struct {
	Kind     string     `json:"kind" msgpack:"kind"`
	Key      string     `json:"key,omitempty" msgpack:"key,omitempty"`
	Preview  string     `json:"preview" msgpack:"preview"`
	Value    any        `json:"value" msgpack:"value"` // leaf value; nil for containers and null
	Length   int        `json:"length,omitempty" msgpack:"length,omitempty"`
	Children []DataNode `json:"children,omitempty" msgpack:"children,omitempty"`
}
