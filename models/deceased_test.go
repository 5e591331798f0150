package models

import "testing"

func TestNormalizeTaxCode(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{"RSSMRA50A01G273A", "RSSMRA50A01G273A"},
		{"rssmra50a01g273a", "RSSMRA50A01G273A"},
		{"  RssMra50a01G273a  ", "RSSMRA50A01G273A"},
	}
	for _, c := range cases {
		if got := NormalizeTaxCode(c.in); got != c.expect {
			t.Errorf("NormalizeTaxCode(%q) = %q, want %q", c.in, got, c.expect)
		}
	}
}

func TestDeceasedFullName(t *testing.T) {
	d := Deceased{FirstName: "Mario", LastName: "Rossi"}
	if got := d.FullName(); got != "Mario Rossi" {
		t.Errorf("FullName = %q", got)
	}
}
