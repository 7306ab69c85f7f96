package domain

import (
	"encoding/json"
	"time"
)

// OrganizeResult reports one organize run for a client. Success is true only
// when every category persisted cleanly; empty input is a success with zero
// counts.
type OrganizeResult struct {
	ClientID              string              `json:"client_id"`
	Success               bool                `json:"success"`
	TotalRawRecords       int                 `json:"total_raw_records"`
	TotalOrganized        int                 `json:"total_organized"`
	OrganizedRecords      map[Category]int    `json:"organized_records"`
	CategoryErrors        map[Category]string `json:"category_errors,omitempty"`
	ProcessingTimeSeconds float64             `json:"processing_time_seconds"`
}

// PopulateResult reports one population run for a (client, platform) pair.
// Inserted counts are rows actually changed in this run, which may be fewer
// than the found counts when entities already existed unchanged.
type PopulateResult struct {
	ClientID              string       `json:"client_id"`
	PlatformType          PlatformType `json:"platform_type"`
	Success               bool         `json:"success"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds"`
	RawRecordsProcessed   int          `json:"raw_records_processed"`
	OrdersFound           int          `json:"orders_found"`
	ProductsFound         int          `json:"products_found"`
	OrdersInserted        int          `json:"orders_inserted"`
	ProductsInserted      int          `json:"products_inserted"`
	TotalInserted         int          `json:"total_inserted"`
	Error                 string       `json:"error,omitempty"`
}

// RefreshJobResult is the ephemeral record of one (client, platform) refresh
// attempt within a batch. It lives only in the batch report that aggregates
// it.
type RefreshJobResult struct {
	ClientID         string        `json:"client_id"`
	PlatformType     PlatformType  `json:"platform_type"`
	Success          bool          `json:"success"`
	Duration         time.Duration `json:"duration"`
	SKUsCached       int           `json:"skus_cached"`
	OrdersInserted   int           `json:"orders_inserted"`
	ProductsInserted int           `json:"products_inserted"`
	Error            string        `json:"error,omitempty"`
}

// BatchState tracks where a batch run is in its lifecycle.
type BatchState string

const (
	BatchIdle        BatchState = "idle"
	BatchEnumerating BatchState = "enumerating"
	BatchFanningOut  BatchState = "fanning_out"
	BatchAggregating BatchState = "aggregating"
	BatchDone        BatchState = "done"
)

// BatchReport aggregates every job of one full refresh run.
type BatchReport struct {
	TotalJobs       int                                           `json:"total_jobs"`
	SuccessfulJobs  int                                           `json:"successful_jobs"`
	FailedJobs      int                                           `json:"failed_jobs"`
	DurationSeconds float64                                       `json:"duration_seconds"`
	Message         string                                        `json:"message,omitempty"`
	ClientResults   map[string]map[PlatformType]*RefreshJobResult `json:"client_results"`
}

// CacheEntry is one cached analytics response. Entries are replaced whole on
// recompute, never partially written.
type CacheEntry struct {
	ClientID          string          `json:"client_id"`
	EndpointKey       string          `json:"endpoint_key"`
	ParamsFingerprint string          `json:"params_fingerprint"`
	Payload           json.RawMessage `json:"payload"`
	ComputedAt        time.Time       `json:"computed_at"`
	TTL               time.Duration   `json:"ttl"`
}

// Fresh reports whether the entry is still servable at the given instant.
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Before(e.ComputedAt.Add(e.TTL))
}

// ResponseSource tells the caller how a read-path response was produced.
type ResponseSource string

const (
	SourceCache           ResponseSource = "cache"
	SourceComputed        ResponseSource = "computed"
	SourceComputedPartial ResponseSource = "computed_partial"
)

// CachedResponse is what the read path returns: the analytics bundle plus
// provenance, always structured even when sub-sections degraded.
type CachedResponse struct {
	Source     ResponseSource   `json:"source"`
	Bundle     *AnalyticsBundle `json:"bundle"`
	ComputedAt time.Time        `json:"computed_at"`
}
