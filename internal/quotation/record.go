// Package quotation defines the wire-level record types that flow through
// the replay pipeline: the quotation tick itself, the parameters that shape
// a run, and the half-open time windows the loader pulls in.
package quotation

import "time"

// Record is the unit of flow through the replay pipeline. Within a single
// WindCode, TradeTime is strictly monotonic in the source store; across
// symbols no order is assumed.
type Record struct {
	WindCode     string
	TradeTime    time.Time
	LatestPrice  float64
	AveragePrice float64
	TotalVolume  float64
}

// indexCodes are the known broad-market index wind codes, full suffix
// included.
var indexCodes = []string{"000001.SH", "000300.SH", "000905.SH", "000016.SH", "399001.SZ", "399006.SZ"}

// IsIndex reports whether code looks like a broad-market index rather than
// a single equity. Classification is on the full wind code, suffix
// included: the numeric body alone is ambiguous across exchanges
// (000001.SH is the SSE Composite index, but 000001.SZ is Ping An Bank, an
// equity).
func IsIndex(windCode string) bool {
	for _, c := range indexCodes {
		if c == windCode {
			return true
		}
	}
	return false
}

// IndexCodes returns the known index wind codes. Callers that need to
// restrict a query to indices only (rather than filtering an existing
// allow-list) use this instead of IsIndex.
func IndexCodes() []string {
	out := make([]string, len(indexCodes))
	copy(out, indexCodes)
	return out
}
