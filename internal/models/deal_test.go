package models

import "testing"

func TestFormatBRL(t *testing.T) {
	cases := map[int64]string{
		0:       "R$ 0,00",
		4800000: "R$ 48.000,00",
		123456:  "R$ 1.234,56",
		99:      "R$ 0,99",
		-150000: "-R$ 1.500,00",
	}
	for in, want := range cases {
		if got := FormatBRL(in); got != want {
			t.Fatalf("FormatBRL(%d) = %q, want %q", in, got, want)
		}
	}
}
