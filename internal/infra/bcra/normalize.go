package bcra

import (
	"fmt"
	"strconv"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
)

// Flatteners: pure functions turning a nested registry response into a flat
// ordered record slice. Output order mirrors the response order (periods,
// causes, entities, details) — no re-sorting.
//
// All three return (nil, nil) when the response is absent, lacks the results
// wrapper, or carries zero detail rows, so callers can tell "sin datos" from
// a fetch failure. Required fields are validated here; a grade outside 1..6,
// a negative amount or a malformed period rejects the payload outright.

// FlattenDebts flattens a current-debts response, one record per
// (period, entity) pair.
func FlattenDebts(resp *DebtsResponse) ([]domain.DebtRecord, error) {
	if resp == nil || resp.Results == nil {
		return nil, nil
	}

	cuit := formatIdentification(resp.Results.Identification)
	var rows []domain.DebtRecord
	for _, period := range resp.Results.Periods {
		if err := validatePeriod("deudas", period.Period); err != nil {
			return nil, err
		}
		for _, ent := range period.Entities {
			if err := validateEntity("deudas", ent); err != nil {
				return nil, err
			}
			rows = append(rows, domain.DebtRecord{
				CUIT:                   cuit,
				Denomination:           resp.Results.Denomination,
				Period:                 period.Period,
				Entity:                 ent.Entity,
				Situation:              ent.Situation,
				SituationDate:          ent.SituationDate,
				Amount:                 ent.Amount,
				DaysOverdue:            ent.DaysOverdue,
				Refinanced:             ent.Refinanced,
				MandatoryRecat:         ent.MandatoryRecat,
				LegalSituation:         ent.LegalSituation,
				TechnicalIrrecoverable: ent.TechnicalIrrecoverable,
				UnderReview:            ent.UnderReview,
				JudicialProcess:        ent.JudicialProcess,
			})
		}
	}
	return rows, nil
}

// FlattenHistoricalDebts flattens a historical-debts response. The envelope
// matches the current one but only situation, amount and the review flags
// are meaningful per row.
func FlattenHistoricalDebts(resp *DebtsResponse) ([]domain.DebtRecord, error) {
	if resp == nil || resp.Results == nil {
		return nil, nil
	}

	cuit := formatIdentification(resp.Results.Identification)
	var rows []domain.DebtRecord
	for _, period := range resp.Results.Periods {
		if err := validatePeriod("deudas históricas", period.Period); err != nil {
			return nil, err
		}
		for _, ent := range period.Entities {
			if err := validateEntity("deudas históricas", ent); err != nil {
				return nil, err
			}
			rows = append(rows, domain.DebtRecord{
				CUIT:            cuit,
				Denomination:    resp.Results.Denomination,
				Period:          period.Period,
				Entity:          ent.Entity,
				Situation:       ent.Situation,
				Amount:          ent.Amount,
				UnderReview:     ent.UnderReview,
				JudicialProcess: ent.JudicialProcess,
			})
		}
	}
	return rows, nil
}

// FlattenRejectedChecks flattens a rejected-checks response, one record per
// check detail entry.
func FlattenRejectedChecks(resp *ChecksResponse) ([]domain.RejectedCheckRecord, error) {
	if resp == nil || resp.Results == nil {
		return nil, nil
	}

	cuit := formatIdentification(resp.Results.Identification)
	var rows []domain.RejectedCheckRecord
	for _, cause := range resp.Results.Causes {
		for _, ent := range cause.Entities {
			for _, det := range ent.Details {
				if det.Amount < 0 {
					return nil, &domain.ErrBadPayload{
						Category: "cheques rechazados",
						Reason:   fmt.Sprintf("negative amount %v for check %d", det.Amount, det.CheckNumber),
					}
				}
				rows = append(rows, domain.RejectedCheckRecord{
					CUIT:            cuit,
					Denomination:    resp.Results.Denomination,
					Cause:           cause.Cause,
					Entity:          ent.Entity,
					CheckNumber:     det.CheckNumber,
					RejectionDate:   det.RejectionDate,
					Amount:          det.Amount,
					PaymentDate:     det.PaymentDate,
					FinePaymentDate: det.FinePaymentDate,
					FineStatus:      det.FineStatus,
					PersonalAccount: det.PersonalAccount,
					LegalName:       det.LegalName,
					UnderReview:     det.UnderReview,
					JudicialProcess: det.JudicialProcess,
				})
			}
		}
	}
	return rows, nil
}

func formatIdentification(id int64) string {
	return strconv.FormatInt(id, 10)
}

func validatePeriod(category, period string) error {
	if len(period) != 6 {
		return &domain.ErrBadPayload{Category: category, Reason: fmt.Sprintf("period %q is not YYYYMM", period)}
	}
	for _, c := range period {
		if c < '0' || c > '9' {
			return &domain.ErrBadPayload{Category: category, Reason: fmt.Sprintf("period %q is not YYYYMM", period)}
		}
	}
	month, _ := strconv.Atoi(period[4:])
	if month < 1 || month > 12 {
		return &domain.ErrBadPayload{Category: category, Reason: fmt.Sprintf("period %q has month %d", period, month)}
	}
	return nil
}

func validateEntity(category string, ent DebtEntity) error {
	if ent.Situation < 1 || ent.Situation > 6 {
		return &domain.ErrBadPayload{Category: category, Reason: fmt.Sprintf("situation %d outside 1..6 for entity %q", ent.Situation, ent.Entity)}
	}
	if ent.Amount < 0 {
		return &domain.ErrBadPayload{Category: category, Reason: fmt.Sprintf("negative amount %v for entity %q", ent.Amount, ent.Entity)}
	}
	return nil
}
