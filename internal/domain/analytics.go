package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertThresholds are the per-client stock alert bounds. Clients without
// stored settings fall back to DefaultAlertThresholds.
type AlertThresholds struct {
	LowStock  int `json:"low_stock" bson:"low_stock"`
	Overstock int `json:"overstock" bson:"overstock"`
}

// DefaultAlertThresholds returns the bounds used when a client has no stored
// settings.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{LowStock: 10, Overstock: 500}
}

// KPISummary holds the headline numbers over the trailing window.
type KPISummary struct {
	WindowDays        int             `json:"window_days"`
	Revenue           decimal.Decimal `json:"revenue"`
	OrderCount        int             `json:"order_count"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	InventoryUnits    int             `json:"inventory_units"`
	InventoryTurnover float64         `json:"inventory_turnover"`
	Approximate       bool            `json:"approximate"`
}

// TrendPoint is one time bucket of a trend series.
type TrendPoint struct {
	Bucket     string          `json:"bucket"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int             `json:"order_count"`
}

// TrendSeries holds the daily series and its weekly rollup. It is built by a
// single pure function invoked exactly once per compute.
type TrendSeries struct {
	Daily  []TrendPoint `json:"daily"`
	Weekly []TrendPoint `json:"weekly"`
}

// StockAlert flags one SKU outside its thresholds.
type StockAlert struct {
	SKU          string       `json:"sku"`
	Title        string       `json:"title"`
	PlatformType PlatformType `json:"platform_type"`
	Quantity     int          `json:"quantity"`
	Kind         string       `json:"kind"` // low_stock or overstock
}

// AlertSummary aggregates per-SKU stock alerts into counts.
type AlertSummary struct {
	LowStockAlerts  int          `json:"low_stock_alerts"`
	OverstockAlerts int          `json:"overstock_alerts"`
	TotalAlerts     int          `json:"total_alerts"`
	Alerts          []StockAlert `json:"alerts"`
}

// DataSummary reports record counts per source for the read path.
type DataSummary struct {
	RawRecords int                  `json:"raw_records"`
	Orders     map[PlatformType]int `json:"orders"`
	Products   map[PlatformType]int `json:"products"`
}

// AnalyticsBundle is the full derived-analytics response. Fast and full mode
// return the same shape; a failed sub-section appears in SectionErrors while
// the remaining sections are still populated.
type AnalyticsBundle struct {
	ClientID      string            `json:"client_id"`
	Platform      PlatformType      `json:"platform"`
	FastMode      bool              `json:"fast_mode"`
	KPIs          *KPISummary       `json:"kpis,omitempty"`
	Trends        *TrendSeries      `json:"trends,omitempty"`
	Alerts        *AlertSummary     `json:"alerts,omitempty"`
	DataSummary   *DataSummary      `json:"data_summary,omitempty"`
	SKUList       []string          `json:"sku_list"`
	Insight       string            `json:"insight,omitempty"`
	SectionErrors map[string]string `json:"section_errors,omitempty"`
	ComputedAt    time.Time         `json:"computed_at"`
}
