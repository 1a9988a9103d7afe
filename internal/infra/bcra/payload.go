package bcra

// Wire types for the Central de Deudores API. Field names mirror the JSON
// the registry actually sends; optional fields rely on Go zero values, so a
// missing flag decodes to false and a missing amount to 0 instead of
// failing the whole row.

// DebtsResponse wraps both the current and the historical debts endpoints —
// the registry uses the same periodos/entidades envelope for both, the
// historical variant just omits the current-only fields.
type DebtsResponse struct {
	Status        int           `json:"status"`
	ErrorMessages []string      `json:"errorMessages"`
	Results       *DebtsResults `json:"results"`
}

// DebtsResults is the top-level results wrapper of a debts response.
type DebtsResults struct {
	Identification int64        `json:"identificacion"`
	Denomination   string       `json:"denominacion"`
	Periods        []DebtPeriod `json:"periodos"`
}

// DebtPeriod groups the entity rows reported for one YYYYMM window.
type DebtPeriod struct {
	Period   string       `json:"periodo"`
	Entities []DebtEntity `json:"entidades"`
}

// DebtEntity is one reporting entity's view of the debtor in a period.
type DebtEntity struct {
	Entity                 string  `json:"entidad"`
	Situation              int     `json:"situacion"`
	SituationDate          string  `json:"fechaSit1"`
	Amount                 float64 `json:"monto"`
	DaysOverdue            int     `json:"diasAtrasoPago"`
	Refinanced             bool    `json:"refinanciaciones"`
	MandatoryRecat         bool    `json:"recategorizacionOblig"`
	LegalSituation         bool    `json:"situacionJuridica"`
	TechnicalIrrecoverable bool    `json:"irrecDisposicionTecnica"`
	UnderReview            bool    `json:"enRevision"`
	JudicialProcess        bool    `json:"procesoJud"`
}

// ChecksResponse wraps the rejected checks endpoint.
type ChecksResponse struct {
	Status        int            `json:"status"`
	ErrorMessages []string       `json:"errorMessages"`
	Results       *ChecksResults `json:"results"`
}

// ChecksResults is the top-level results wrapper of a checks response.
type ChecksResults struct {
	Identification int64        `json:"identificacion"`
	Denomination   string       `json:"denominacion"`
	Causes         []CheckCause `json:"causales"`
}

// CheckCause groups rejected checks by rejection cause.
type CheckCause struct {
	Cause    string        `json:"causal"`
	Entities []CheckEntity `json:"entidades"`
}

// CheckEntity groups the check detail rows reported by one entity.
type CheckEntity struct {
	Entity  int           `json:"entidad"`
	Details []CheckDetail `json:"detalle"`
}

// CheckDetail is one dishonored check.
type CheckDetail struct {
	CheckNumber     int64   `json:"nroCheque"`
	RejectionDate   string  `json:"fechaRechazo"`
	Amount          float64 `json:"monto"`
	PaymentDate     string  `json:"fechaPago"`
	FinePaymentDate string  `json:"fechaPagoMulta"`
	FineStatus      string  `json:"estadoMulta"`
	PersonalAccount bool    `json:"ctaPersonal"`
	LegalName       string  `json:"denomJuridica"`
	UnderReview     bool    `json:"enRevision"`
	JudicialProcess bool    `json:"procesoJud"`
}
