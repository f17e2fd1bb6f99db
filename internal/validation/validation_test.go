package validation

import (
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "pH", false},
		{"with underscore", "Temperature_C", false},
		{"leading underscore", "_raw", false},
		{"digits", "sensor2", false},
		{"empty", "", true},
		{"leading digit", "2sensor", true},
		{"hyphen", "temp-c", true},
		{"space", "temp c", true},
		{"quote", `pH"; DROP TABLE reactions; --`, true},
		{"dot", "a.b", true},
		{"control char", "a\x00b", true},
		{"non-ascii", "température", true},
		{"too long", strings.Repeat("a", 64), true},
		{"max length", strings.Repeat("a", 63), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	got, err := QuoteIdentifier("Time_s")
	if err != nil {
		t.Fatalf("QuoteIdentifier: %v", err)
	}
	if got != `"Time_s"` {
		t.Errorf("got %s, want \"Time_s\"", got)
	}

	if _, err := QuoteIdentifier(`x"y`); err == nil {
		t.Error("expected error for embedded quote")
	}
}

func TestValidateFieldNames(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		wantErr bool
	}{
		{"default schema", []string{"Time_s", "Temperature_C", "pH"}, false},
		{"single", []string{"value"}, false},
		{"empty", nil, true},
		{"duplicate", []string{"pH", "pH"}, true},
		{"case duplicate", []string{"ph", "PH"}, true},
		{"bad name", []string{"Time_s", "temp c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFieldNames(tt.fields)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFieldNames(%v) error = %v, wantErr %v", tt.fields, err, tt.wantErr)
			}
		})
	}
}

func TestRunTableName(t *testing.T) {
	tests := []struct {
		runID   int64
		want    string
		wantErr bool
	}{
		{1, "run_1", false},
		{42, "run_42", false},
		{0, "", true},
		{-7, "", true},
	}

	for _, tt := range tests {
		got, err := RunTableName("run_", tt.runID)
		if (err != nil) != tt.wantErr {
			t.Errorf("RunTableName(%d) error = %v, wantErr %v", tt.runID, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RunTableName(%d) = %q, want %q", tt.runID, got, tt.want)
		}
	}
}
