package domain_test

import (
	"testing"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
)

func TestValidCUIT(t *testing.T) {
	valid := []string{"30500001235", "20304050607", "00000000000"}
	for _, cuit := range valid {
		if !domain.ValidCUIT(cuit) {
			t.Errorf("expected %q to be valid", cuit)
		}
	}

	invalid := []string{"", "123", "30-50000123-5", "3050000123X", "305000012345", " 30500001235"}
	for _, cuit := range invalid {
		if domain.ValidCUIT(cuit) {
			t.Errorf("expected %q to be invalid", cuit)
		}
	}
}

func TestSituationLabel(t *testing.T) {
	if got := domain.SituationLabel(1); got != "1: Normal" {
		t.Errorf("unexpected label: %q", got)
	}
	if got := domain.SituationLabel(6); got != "6: Irrecuperable por disposición técnica" {
		t.Errorf("unexpected label: %q", got)
	}
	if got := domain.SituationLabel(9); got != "9: Desconocida" {
		t.Errorf("unexpected label for unknown grade: %q", got)
	}
}

func TestDebtRecord_Irregular(t *testing.T) {
	if (domain.DebtRecord{Situation: 1}).Irregular() {
		t.Error("situation 1 must be regular")
	}
	for s := 2; s <= 6; s++ {
		if !(domain.DebtRecord{Situation: s}).Irregular() {
			t.Errorf("situation %d must be irregular", s)
		}
	}
}
