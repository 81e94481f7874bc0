package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"simple", "simple"},
		{"with_underscore", "with_underscore"},
		{"_leading", "_leading"},
		{"Mixed9", "Mixed9"},
		{"has space", `"has space"`},
		{"9starts", `"9starts"`},
		{"select", `"select"`},
		{`quo"te`, `"quo""te"`},
		{"", `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.name); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := QuoteLiteral("it's"); got != "'it''s'" {
		t.Errorf("expected 'it''s', got %s", got)
	}
}

func TestLiteralList(t *testing.T) {
	tests := []struct {
		values   []string
		expected string
	}{
		{nil, "[]"},
		{[]string{"a.parquet"}, "['a.parquet']"},
		{[]string{"a.parquet", "o'brien.parquet"}, "['a.parquet', 'o''brien.parquet']"},
	}
	for _, tt := range tests {
		if got := LiteralList(tt.values); got != tt.expected {
			t.Errorf("expected '%s', got '%s'", tt.expected, got)
		}
	}
}
