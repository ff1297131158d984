package types

import (
	"encoding/json"
	"testing"
)

func TestQuantity_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in      string
		want    Quantity
		wantErr bool
	}{
		{`12.5`, 125000, false},
		{`"12.5"`, 125000, false},
		{`0.0001`, 1, false},
		{`-3.25`, -32500, false},
		{`100`, 1000000, false},
		{`null`, 0, false},
		// Extra digits are truncated, not rounded.
		{`1.99999`, 19999, false},
		{`".5"`, 5000, false},
		{`"abc"`, 0, true},
	}

	for _, tc := range cases {
		var q Quantity
		err := json.Unmarshal([]byte(tc.in), &q)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Unmarshal(%s): expected error, got %v", tc.in, q)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tc.in, err)
			continue
		}
		if q != tc.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tc.in, q, tc.want)
		}
	}
}

func TestQuantity_String(t *testing.T) {
	cases := []struct {
		in   Quantity
		want string
	}{
		{NewQuantityFromInt(12), "12.0000"},
		{125000, "12.5000"},
		{1, "0.0001"},
		{-32500, "-3.2500"},
		{0, "0.0000"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQuantity_JSONRoundTrip(t *testing.T) {
	type line struct {
		Qty Quantity `json:"qty"`
	}

	in := line{Qty: NewQuantityFromFloat64(7.1234)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"qty":7.1234}` {
		t.Errorf("Marshal = %s, want a plain JSON number", data)
	}

	var out line
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Qty != in.Qty {
		t.Errorf("round trip changed value: %d -> %d", in.Qty, out.Qty)
	}
}

func TestQuantity_Decimal(t *testing.T) {
	qty := NewQuantityFromFloat64(2.5)
	total := qty.Decimal().Mul(MustMoney("10.40"))
	if !total.Equal(MustMoney("26")) {
		t.Errorf("2.5 x 10.40 = %s, want 26", total)
	}
}
