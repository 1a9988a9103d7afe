package domain

// SummaryRow is the one-line verdict for a queried CUIT in a batch report.
// Field values are plain strings/numbers/booleans so the row can be
// serialized to JSON or CSV as-is.
type SummaryRow struct {
	CUIT                      string  `json:"cuit"`
	Denomination              string  `json:"denominacion"`
	CurrentSituation          string  `json:"situacionActual"` // "Sin datos" or "N: <label>"
	HasCurrentIrregularity    bool    `json:"tieneSituacionIrregular"`
	HadHistoricalIrregularity bool    `json:"tuvoSituacionIrregular"`
	HasRejectedChecks         bool    `json:"tieneChequesRechazados"`
	TotalDebt                 float64 `json:"deudaTotal"` // miles de pesos
	EntityCount               int     `json:"cantidadEntidades"`
	SituationDetail           string  `json:"detalleSituaciones"` // "Sit.1: 2, Sit.3: 1"
	RejectedCheckCount        int     `json:"cantidadChequesRechazados"`
}

// BatchStats aggregates a finished batch, mirroring the report's headline
// metrics.
type BatchStats struct {
	Total                     int `json:"total"`
	WithCurrentIrregularity   int `json:"conSituacionIrregular"`
	WithHistoricalIrregularity int `json:"conHistorialIrregular"`
	WithRejectedChecks        int `json:"conChequesRechazados"`
}

// PipelineMetrics is a point-in-time snapshot of the pipeline counters,
// served by the metrics endpoint.
type PipelineMetrics struct {
	BatchesCompleted     int64   `json:"batches_completed"`
	BatchesRejected      int64   `json:"batches_rejected"`
	IdentifiersProcessed int64   `json:"identifiers_processed"`
	UpstreamRequests     int64   `json:"upstream_requests"`
	UpstreamErrorRate    float64 `json:"upstream_error_rate"`
	CacheHitRate         float64 `json:"cache_hit_rate"`
	Period               string  `json:"period"`
}

// BatchReport is the output of one aggregation run: exactly one row per
// valid input CUIT, in input order, plus the warnings raised along the way
// (invalid identifiers, per-category fetch failures).
type BatchReport struct {
	Rows     []SummaryRow `json:"rows"`
	Stats    BatchStats   `json:"stats"`
	Warnings []string     `json:"warnings,omitempty"`
}
