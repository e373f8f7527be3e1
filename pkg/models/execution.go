package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus classifies the outcome of a query run.
type ExecutionStatus string

const (
	StatusSuccess   ExecutionStatus = "SUCCESS"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusTimeout   ExecutionStatus = "TIMEOUT"
	StatusCancelled ExecutionStatus = "CANCELLED"
)

// ExecutionRecord is one immutable row of query execution history.
// Corrections are new records, never in-place edits.
type ExecutionRecord struct {
	ID              uuid.UUID       `json:"id"`
	OrgID           int64           `json:"org_id"`
	UserID          string          `json:"user_id"`
	QueryText       string          `json:"query_text"`
	SQLGenerated    string          `json:"sql_generated"`
	Status          ExecutionStatus `json:"status"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	ExecutionTimeMs *int64          `json:"execution_time_ms,omitempty"`
	RowsReturned    *int64          `json:"rows_returned,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ExecutionRecordInput is what the tracker accepts; IDs and timestamps are
// assigned at insert time.
type ExecutionRecordInput struct {
	OrgID           int64
	UserID          string
	QueryText       string
	SQLGenerated    string
	Status          ExecutionStatus
	ErrorMessage    *string
	ExecutionTimeMs *int64
	RowsReturned    *int64
}

// PeriodType is the aggregation granularity for performance rollups.
type PeriodType string

const (
	PeriodDay   PeriodType = "DAY"
	PeriodWeek  PeriodType = "WEEK"
	PeriodMonth PeriodType = "MONTH"
)

// PerformanceAggregate is the incremental rollup row for one organization
// and period. Averages follow the running-average rule
// avg' = (avg*total + sample)/(total+1), not an overwrite.
type PerformanceAggregate struct {
	OrgID              int64      `json:"org_id"`
	PeriodType         PeriodType `json:"period_type"`
	DatePeriod         time.Time  `json:"date_period"`
	TotalQueries       int64      `json:"total_queries"`
	SuccessfulQueries  int64      `json:"successful_queries"`
	FailedQueries      int64      `json:"failed_queries"`
	AvgExecutionTimeMs float64    `json:"avg_execution_time_ms"`
}

// UserActivity is the correlated activity-log row written alongside each
// execution record.
type UserActivity struct {
	ID           uuid.UUID `json:"id"`
	OrgID        int64     `json:"org_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Detail       string    `json:"detail"`
	CreatedAt    time.Time `json:"created_at"`
}
