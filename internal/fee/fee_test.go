package fee

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		percent string
		fixed   string
		want    string
	}{
		{"default fee on 100", "100", "5.95", "0.30", "6.25"},
		{"rounds half up", "10.01", "5", "0", "0.5"}, // 0.5005 -> 0.50
		{"zero base keeps fixed", "0", "5.95", "0.30", "0.3"},
		{"zero everything", "0", "0", "0", "0"},
		{"percent only", "200", "2.9", "0", "5.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(dec(t, tt.base), dec(t, tt.percent), dec(t, tt.fixed))
			if !got.Equal(dec(t, tt.want)) {
				t.Errorf("Compute(%s, %s, %s) = %s, want %s", tt.base, tt.percent, tt.fixed, got, tt.want)
			}
		})
	}
}

func TestComputeHalfUpBoundary(t *testing.T) {
	// 5.125 must round to 5.13, not 5.12
	got := Compute(dec(t, "102.5"), dec(t, "5"), dec(t, "0"))
	if got.String() != "5.13" {
		t.Errorf("Compute(102.5, 5, 0) = %s, want 5.13", got)
	}
}

func TestDescription(t *testing.T) {
	got := Description(dec(t, "5.95"), dec(t, "0.30"), "USD")
	want := "PayPal Processing Fee (5.95% + USD 0.3)"
	if got != want {
		t.Errorf("Description = %q, want %q", got, want)
	}
}
