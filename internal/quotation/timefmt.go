package quotation

import "time"

// DateLayout is the yyyyMMdd layout used for ReplayParams.StartDate/EndDate.
const DateLayout = "20060102"

// TradeTimeLayout is the yyyy-MM-dd HH:mm:ss layout used on the wire.
const TradeTimeLayout = "2006-01-02 15:04:05"

// ParseDate parses a yyyyMMdd string into a date-only time.Time in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// FormatDate renders t as yyyyMMdd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTradeTime renders t as yyyy-MM-dd HH:mm:ss, the wire format pinned
// by the quotation payload schema.
func FormatTradeTime(t time.Time) string {
	return t.Format(TradeTimeLayout)
}

// ParseTradeTime parses the yyyy-MM-dd HH:mm:ss wire format in loc.
func ParseTradeTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TradeTimeLayout, s, loc)
}
