// Package domain holds the core types of the Central de Deudores pipeline:
// the flattened records produced from the BCRA API responses and the summary
// rows derived from them.
package domain

import (
	"fmt"
	"regexp"
)

// cuitPattern is the only accepted identifier format: exactly 11 digits,
// no hyphens (CUIT/CUIL/CDI).
var cuitPattern = regexp.MustCompile(`^\d{11}$`)

// ValidCUIT reports whether s is a well-formed 11-digit identifier.
func ValidCUIT(s string) bool {
	return cuitPattern.MatchString(s)
}

// SituationLabels maps the registry's credit situation grade (1 best, 6
// worst) to its official description. Grades above 1 are irregular.
var SituationLabels = map[int]string{
	1: "Normal",
	2: "Con seguimiento especial/Riesgo bajo",
	3: "Con problemas/Riesgo medio",
	4: "Alto riesgo de insolvencia/Riesgo alto",
	5: "Irrecuperable",
	6: "Irrecuperable por disposición técnica",
}

// SituationLabel renders a grade as "N: <description>".
func SituationLabel(grade int) string {
	label, ok := SituationLabels[grade]
	if !ok {
		label = "Desconocida"
	}
	return fmt.Sprintf("%d: %s", grade, label)
}

// NoDataLabel is the situation shown for a CUIT with no current debt rows.
const NoDataLabel = "Sin datos"

// DebtRecord is one flattened debt row: a (cuit, period, entity) triple.
// Current and historical debts share the shape; historical responses only
// carry situation, amount and the two review flags, leaving the rest zeroed.
type DebtRecord struct {
	CUIT         string  `json:"cuit"`
	Denomination string  `json:"denominacion"`
	Period       string  `json:"periodo"` // YYYYMM
	Entity       string  `json:"entidad"`
	Situation    int     `json:"situacion"` // 1..6
	Amount       float64 `json:"monto"`     // miles de pesos

	// Current-period only.
	SituationDate          string `json:"fechaSit1,omitempty"`
	DaysOverdue            int    `json:"diasAtrasoPago,omitempty"`
	Refinanced             bool   `json:"refinanciaciones,omitempty"`
	MandatoryRecat         bool   `json:"recategorizacionOblig,omitempty"`
	LegalSituation         bool   `json:"situacionJuridica,omitempty"`
	TechnicalIrrecoverable bool   `json:"irrecDisposicionTecnica,omitempty"`

	UnderReview     bool `json:"enRevision"`
	JudicialProcess bool `json:"procesoJud"`
}

// Irregular reports whether the row carries a non-normal situation.
func (r DebtRecord) Irregular() bool {
	return r.Situation > 1
}

// RejectedCheckRecord is one flattened dishonored check: a
// (cuit, causal, entity, check number) tuple.
type RejectedCheckRecord struct {
	CUIT            string  `json:"cuit"`
	Denomination    string  `json:"denominacion"`
	Cause           string  `json:"causal"`
	Entity          int     `json:"entidad"`
	CheckNumber     int64   `json:"nroCheque"`
	RejectionDate   string  `json:"fechaRechazo"`
	Amount          float64 `json:"monto"`
	PaymentDate     string  `json:"fechaPago,omitempty"`
	FinePaymentDate string  `json:"fechaPagoMulta,omitempty"`
	FineStatus      string  `json:"estadoMulta,omitempty"`
	PersonalAccount bool    `json:"ctaPersonal"`
	LegalName       string  `json:"denomJuridica,omitempty"`
	UnderReview     bool    `json:"enRevision"`
	JudicialProcess bool    `json:"procesoJud"`
}

// DebtorStatus is the full picture for a single CUIT: the three flattened
// record sets plus derived flags. A nil record slice means the registry had
// nothing for that category (distinct from an empty table).
type DebtorStatus struct {
	CUIT            string                `json:"cuit"`
	Denomination    string                `json:"denominacion"`
	HasIrregular    bool                  `json:"tieneSituacionIrregular"`
	CurrentDebts    []DebtRecord          `json:"deudas"`
	HistoricalDebts []DebtRecord          `json:"deudasHistoricas"`
	RejectedChecks  []RejectedCheckRecord `json:"chequesRechazados"`
	Warnings        []string              `json:"warnings,omitempty"`
}
