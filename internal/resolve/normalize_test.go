// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import "testing"

func TestGivenCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"initial vs full", []string{"j"}, []string{"jane"}, true},
		{"full equality", []string{"jane"}, []string{"jane"}, true},
		{"different full names", []string{"jane"}, []string{"john"}, false},
		{"initial mismatch", []string{"q"}, []string{"jane"}, false},
		{"middle name extra", []string{"jane"}, []string{"jane", "b"}, true},
		{"middle initial vs middle full", []string{"jane", "b"}, []string{"jane", "barbara"}, true},
		{"middle mismatch", []string{"jane", "b"}, []string{"jane", "carol"}, false},
		{"both empty", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := givenCompatible(tt.a, tt.b); got != tt.want {
				t.Errorf("givenCompatible(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFoldStripsDiacritics(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Müller", "muller"},
		{"Gómez-Pérez", "gomez-perez"},
		{"O'Brien", "o'brien"},
		{"SMITH", "smith"},
	}
	for _, tt := range tests {
		if got := fold(tt.in); got != tt.want {
			t.Errorf("fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeFamily(t *testing.T) {
	tests := []struct{ in, want string }{
		{"van der Berg", "vanderberg"},
		{"O'Brien", "obrien"},
		{"Gómez-Pérez", "gomezperez"},
	}
	for _, tt := range tests {
		if got := normalizeFamily(tt.in); got != tt.want {
			t.Errorf("normalizeFamily(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAffiliationTokensStripBoilerplate(t *testing.T) {
	set := affiliationTokens("Department of Mathematics, MIT, Cambridge, MA")
	for _, gone := range []string{"department", "of"} {
		if set[gone] {
			t.Errorf("boilerplate token %q not stripped", gone)
		}
	}
	for _, kept := range []string{"mathematics", "mit", "cambridge"} {
		if !set[kept] {
			t.Errorf("token %q missing", kept)
		}
	}
}

func TestJaccard(t *testing.T) {
	a := affiliationTokens("Department of Mathematics, MIT")
	b := affiliationTokens("MIT")
	if sim := jaccard(a, b); sim < 0.3 {
		t.Errorf("jaccard overlapping sets = %f, want > 0.3", sim)
	}

	c := affiliationTokens("Unrelated University")
	if sim := jaccard(a, c); sim != 0 {
		t.Errorf("jaccard disjoint sets = %f, want 0", sim)
	}

	if sim := jaccard(nil, nil); sim != 0 {
		t.Errorf("jaccard empty sets = %f, want 0", sim)
	}
}
