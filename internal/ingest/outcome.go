package ingest

// RejectReason explains why a prediction or response was dropped.
type RejectReason string

const (
	// ReasonUnknownRequest: the response's request id has no synapse
	// record, so its offered-listing set cannot be consulted.
	ReasonUnknownRequest RejectReason = "unknown_request"

	// ReasonUnresolvedMiner: no hotkey at the response's registry index.
	ReasonUnresolvedMiner RejectReason = "unresolved_miner"

	// ReasonBadOfferedSet: the stored offered set failed to decode.
	ReasonBadOfferedSet RejectReason = "bad_offered_set"

	// ReasonNotOffered: the prediction's listing was not in the
	// request's offered set.
	ReasonNotOffered RejectReason = "not_offered"

	// ReasonMissingFields: predicted price or date is absent.
	ReasonMissingFields RejectReason = "missing_fields"
)

// Outcome is the result of processing one prediction.
type Outcome struct {
	NextplaceID string
	Accepted    bool
	Reason      RejectReason // set when not accepted
}

// ResponseResult aggregates the outcomes for one response.
type ResponseResult struct {
	RequestID   string
	MinerHotkey string // empty if the miner could not be resolved

	// Skipped is set when the whole response was dropped before any
	// prediction was considered.
	Skipped bool
	Reason  RejectReason // set when Skipped

	Outcomes []Outcome
	// Err records a store failure that aborted this response.
	Err error
}

// Accepted counts the accepted predictions in the response.
func (r ResponseResult) Accepted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Accepted {
			n++
		}
	}
	return n
}
