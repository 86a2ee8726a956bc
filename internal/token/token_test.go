package token

import "testing"

func TestGenerateShape(t *testing.T) {
	gen := NewGenerator()

	for i := 0; i < 100; i++ {
		tok := gen.Generate()
		if len(tok) != Length {
			t.Fatalf("token %q has length %d, want %d", tok, len(tok), Length)
		}
		if !IsValid(tok) {
			t.Fatalf("generated token %q failed validation", tok)
		}
		for _, c := range tok {
			if c >= 'A' && c <= 'F' {
				t.Fatalf("token %q contains uppercase hex", tok)
			}
		}
	}
}

func TestGenerateDistinct(t *testing.T) {
	gen := NewGenerator()
	if a, b := gen.Generate(), gen.Generate(); a == b {
		t.Errorf("two successive tokens are equal: %q", a)
	}
}

func TestGeneratorsIndependent(t *testing.T) {
	a := NewGenerator()
	b := NewGenerator()
	if a.Generate() == b.Generate() {
		t.Error("independently seeded generators produced the same token")
	}
}

func TestDeterministicSeeds(t *testing.T) {
	a := NewGeneratorWithSeeds(1, 2)
	b := NewGeneratorWithSeeds(1, 2)
	if a.Generate() != b.Generate() {
		t.Error("same seeds must give the same stream")
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"lowercase hex", "0123456789abcdef0123456789abcdef", true},
		{"uppercase hex", "0123456789ABCDEF0123456789ABCDEF", true},
		{"too short", "0123456789abcdef", false},
		{"too long", "0123456789abcdef0123456789abcdef00", false},
		{"non-hex character", "0123456789abcdefg123456789abcdef", false},
		{"empty", "", false},
		{"whitespace", "0123456789abcdef 123456789abcdef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.token); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
