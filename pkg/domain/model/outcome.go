package model

// OutcomeStatus tells callers whether an operation produced its value
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeDegraded OutcomeStatus = "degraded"
	OutcomeSkipped  OutcomeStatus = "skipped"
)

// Reason explains a degraded or skipped outcome
type Reason string

const (
	ReasonEmbeddingFailed  Reason = "embedding_failed"
	ReasonStorageFailed    Reason = "storage_failed"
	ReasonCompletionFailed Reason = "completion_failed"
	ReasonMalformedOutput  Reason = "malformed_output"
	ReasonEnrichmentFailed Reason = "enrichment_failed"
	ReasonArchiveFailed    Reason = "archive_failed"
	ReasonInternalError    Reason = "internal_error"
	ReasonNoHistory        Reason = "no_history"
	ReasonNoRecentMemories Reason = "no_recent_memories"
	ReasonEmptyQuery       Reason = "empty_query"
)

// Outcome is embedded in every public result. A degraded outcome still
// carries a valid value; it only means a collaborator failed on the way.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason Reason        `json:"reason,omitempty"`
	Error  string        `json:"error,omitempty"`
	Err    error         `json:"-"`
}

// OK returns a successful outcome
func OK() Outcome {
	return Outcome{Status: OutcomeOK}
}

// Degraded returns an outcome for a collaborator or invariant failure
func Degraded(reason Reason, err error) Outcome {
	o := Outcome{Status: OutcomeDegraded, Reason: reason, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Skipped returns an outcome for "nothing to do"
func Skipped(reason Reason) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

func (o Outcome) IsOK() bool {
	return o.Status == OutcomeOK
}

func (o Outcome) IsDegraded() bool {
	return o.Status == OutcomeDegraded
}

func (o Outcome) IsSkipped() bool {
	return o.Status == OutcomeSkipped
}
