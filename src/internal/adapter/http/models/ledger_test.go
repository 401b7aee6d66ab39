package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 12.50 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected 12.5, got %s", amount)
	}

	if _, err := ParseAmount("ten"); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
	if _, err := ParseAmount(""); err == nil || err.Error() != "amount is required" {
		t.Fatalf("expected required error, got %v", err)
	}
}

func TestTransferRequestValidateJoinsErrors(t *testing.T) {
	err := TransferRequest{Amount: "abc"}.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"recipient is required", "not a valid number", "pin is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("-30")); got != "-30.00" {
		t.Fatalf("expected -30.00, got %s", got)
	}
}

func TestParseAmountRejectsExponentAndOversizedText(t *testing.T) {
	for _, raw := range []string{"1e3000000", "1E2", "1e-5", strings.Repeat("9", 40)} {
		if _, err := ParseAmount(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
	if _, err := ParseAmount("999999999999999999.99"); err != nil {
		t.Fatalf("expected largest balance to parse, got %v", err)
	}
}
