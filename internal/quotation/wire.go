package quotation

import "encoding/json"

// wirePayload mirrors the exact JSON keys required on the broker payload.
type wirePayload struct {
	WindCode     string  `json:"windCode"`
	TradeDate    string  `json:"tradeDate"`
	LatestPrice  float64 `json:"latestPrice"`
	TotalVolume  float64 `json:"totalVolume"`
	AveragePrice float64 `json:"averagePrice"`
}

// EncodeWire renders r as the canonical JSON payload published to the
// broker: keys exact, tradeDate formatted yyyy-MM-dd HH:mm:ss.
func EncodeWire(r Record) ([]byte, error) {
	return json.Marshal(wirePayload{
		WindCode:     r.WindCode,
		TradeDate:    FormatTradeTime(r.TradeTime),
		LatestPrice:  r.LatestPrice,
		TotalVolume:  r.TotalVolume,
		AveragePrice: r.AveragePrice,
	})
}
