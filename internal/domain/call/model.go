package call

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is one row of the append-only call ledger. Records are inserted
// once and never updated; a deleted key leaves its records orphaned so the
// audit trail survives.
type Record struct {
	ID              int64           `db:"id"`
	APIKeyID        uuid.UUID       `db:"apikey_id"`
	APIKeySnapshot  string          `db:"api_key"`
	Endpoint        string          `db:"endpoint"`
	Method          string          `db:"method"`
	StatusCode      int             `db:"status_code"`
	RequestBody     json.RawMessage `db:"request_body"`
	ResponseBody    json.RawMessage `db:"response_body"`
	ErrorMessage    *string         `db:"error_message"`
	IPAddress       string          `db:"ip_address"`
	UserAgent       string          `db:"user_agent"`
	ExecutionTimeMS int64           `db:"execution_time_ms"`
	CreatedAt       time.Time       `db:"created_at"`
}

// AdminRecord joins a ledger row with its owning key's name and token for
// the admin listing.
type AdminRecord struct {
	ID              int64     `json:"id"`
	KeyName         string    `json:"name"`
	KeyToken        string    `json:"apikey"`
	Endpoint        string    `json:"endpoint"`
	Method          string    `json:"method"`
	StatusCode      int       `json:"status_code"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// KeyStats aggregates ledger rows for one key.
type KeyStats struct {
	TotalCalls       int64    `json:"total_calls"`
	SuccessfulCalls  int64    `json:"successful_calls"`
	FailedCalls      int64    `json:"failed_calls"`
	UniqueEndpoints  int64    `json:"unique_endpoints"`
	AvgExecutionTime *float64 `json:"avg_execution_time"`
}

// GlobalStats aggregates ledger rows across all keys inside a time window.
type GlobalStats struct {
	ActiveKeys       int64    `json:"active_keys"`
	TotalCalls       int64    `json:"total_calls"`
	SuccessfulCalls  int64    `json:"successful_calls"`
	FailedCalls      int64    `json:"failed_calls"`
	AvgExecutionTime *float64 `json:"avg_execution_time"`
	MaxExecutionTime *int64   `json:"max_execution_time"`
	MinExecutionTime *int64   `json:"min_execution_time"`
}
