package ingest

// Prediction is one miner forecast for a listing, as delivered by the
// transport. Price and date are pointers because miners may answer a
// request without forecasting every offered listing.
type Prediction struct {
	NextplaceID        string   `json:"nextplace_id"`
	PredictedSalePrice *float64 `json:"predicted_sale_price"`
	PredictedSaleDate  *string  `json:"predicted_sale_date"`
	Market             string   `json:"market"`

	// ForceUpdate selects the replace conflict policy: an existing
	// prediction for the same listing is overwritten instead of kept.
	ForceUpdate bool `json:"force_update_past_predictions"`
}

// Response pairs one miner's prediction batch with the request id that
// solicited it. Responses arrive in registry order: the i-th response
// belongs to the miner at registry position i.
type Response struct {
	RequestID   string       `json:"request_id"`
	Predictions []Prediction `json:"predictions"`
}
