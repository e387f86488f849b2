package topic

import (
	"errors"
	"iter"
	"slices"
	"testing"
)

// =============================================================================
// ToSubject Tests
// =============================================================================

func TestToSubject(t *testing.T) {
	tests := []struct {
		name  string
		topic Topic
		want  string
	}{
		{
			name:  "exact levels",
			topic: Exacts("x", "y"),
			want:  "x.y",
		},
		{
			name:  "trailing wildcard",
			topic: New(Exact("x"), Wildcard),
			want:  "x.*",
		},
		{
			name:  "inner wildcard",
			topic: New(Exact("openfmb"), Wildcard, Exact("SwitchReadingProfile")),
			want:  "openfmb.*.SwitchReadingProfile",
		},
		{
			name:  "remainder",
			topic: Exacts("x").WithPrefixMatch(),
			want:  "x.>",
		},
		{
			name:  "wildcard then remainder",
			topic: New(Exact("x"), Wildcard).WithPrefixMatch(),
			want:  "x.*.>",
		},
		{
			name:  "remainder only",
			topic: New().WithPrefixMatch(),
			want:  ">",
		},
		{
			name:  "single level",
			topic: Exacts("x"),
			want:  "x",
		},
		{
			name:  "token with embedded star is literal",
			topic: Exacts("a*b", "c>d"),
			want:  "a*b.c>d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSubject(tt.topic)
			if err != nil {
				t.Fatalf("ToSubject() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ToSubject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToSubjectMalformed(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   New(),
			wantErr: ErrEmptyTopic,
		},
		{
			name:    "empty token",
			topic:   Exacts("a", "", "b"),
			wantErr: ErrEmptyToken,
		},
		{
			name:    "delimiter in token",
			topic:   Exacts("a.b"),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "star as exact token",
			topic:   Exacts("a", "*"),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "remainder as exact token",
			topic:   Exacts(">"),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "whitespace in token",
			topic:   Exacts("living room"),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "empty token under remainder",
			topic:   Exacts("").WithPrefixMatch(),
			wantErr: ErrEmptyToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSubject(tt.topic)
			if err == nil {
				t.Fatalf("ToSubject() = %q, want error", got)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ToSubject() error = %v, want ErrMalformed", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ToSubject() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// FromSubject Tests
// =============================================================================

func TestFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    []Level
	}{
		{"x.y", []Level{Exact("x"), Exact("y")}},
		{"x.*", []Level{Exact("x"), Wildcard}},
		{"x", []Level{Exact("x")}},
		{"openfmb.switchmodule.SwitchReadingProfile", []Level{
			Exact("openfmb"), Exact("switchmodule"), Exact("SwitchReadingProfile"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got := FromSubject(tt.subject)
			if levels := slices.Collect(got.Levels()); !slices.Equal(levels, tt.want) {
				t.Errorf("FromSubject(%q) levels = %v, want %v", tt.subject, levels, tt.want)
			}
			if got.PrefixMatch() {
				t.Errorf("FromSubject(%q).PrefixMatch() = true, want false", tt.subject)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	topics := []Path{
		Exacts("x"),
		Exacts("x", "y", "z"),
		New(Exact("x"), Wildcard, Exact("z")),
		New(Wildcard),
		New(Wildcard, Wildcard),
		Exacts("openfmb", "breakermodule", "BreakerStatusProfile", "5d3c4a1e-7c0b-4b53-9b61-0a8f7f1c9e11"),
	}

	for _, tp := range topics {
		t.Run(tp.String(), func(t *testing.T) {
			subject, err := ToSubject(tp)
			if err != nil {
				t.Fatalf("ToSubject() error = %v", err)
			}
			back := FromSubject(subject)
			if !back.Equal(tp) {
				t.Errorf("FromSubject(ToSubject(%v)) = %v", tp, back)
			}

			again, err := ToSubject(back)
			if err != nil {
				t.Fatalf("ToSubject(back) error = %v", err)
			}
			if again != subject {
				t.Errorf("re-encoded subject = %q, want %q", again, subject)
			}
		})
	}
}

func TestRoundTripRemainderAsymmetry(t *testing.T) {
	tp := New(Exact("x"), Wildcard).WithPrefixMatch()

	subject, err := ToSubject(tp)
	if err != nil {
		t.Fatalf("ToSubject() error = %v", err)
	}
	if subject != "x.*.>" {
		t.Fatalf("ToSubject() = %q, want %q", subject, "x.*.>")
	}

	if FromSubject(subject).PrefixMatch() {
		t.Error("FromSubject() should never report a remainder match")
	}

	parsed, err := ParsePattern(subject)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}
	if !parsed.Equal(tp) {
		t.Errorf("ParsePattern(%q) = %v, want %v", subject, parsed, tp)
	}
}

// =============================================================================
// ParsePattern Tests
// =============================================================================

func TestParsePattern(t *testing.T) {
	tests := []struct {
		pattern    string
		wantLevels []Level
		wantPrefix bool
		wantErr    error
	}{
		{pattern: "a.b", wantLevels: []Level{Exact("a"), Exact("b")}},
		{pattern: "a.*", wantLevels: []Level{Exact("a"), Wildcard}},
		{pattern: "a.>", wantLevels: []Level{Exact("a")}, wantPrefix: true},
		{pattern: ">", wantLevels: []Level{}, wantPrefix: true},
		{pattern: "", wantErr: ErrEmptyTopic},
		{pattern: "a..b", wantErr: ErrEmptyToken},
		{pattern: "a.>.b", wantErr: ErrInvalidToken},
		{pattern: "a.", wantErr: ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := ParsePattern(tt.pattern)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePattern(%q) error = %v, want %v", tt.pattern, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePattern(%q) error = %v", tt.pattern, err)
			}
			if levels := slices.Collect(got.Levels()); !slices.Equal(levels, tt.wantLevels) {
				t.Errorf("ParsePattern(%q) levels = %v, want %v", tt.pattern, levels, tt.wantLevels)
			}
			if got.PrefixMatch() != tt.wantPrefix {
				t.Errorf("ParsePattern(%q).PrefixMatch() = %v, want %v", tt.pattern, got.PrefixMatch(), tt.wantPrefix)
			}
		})
	}
}

// =============================================================================
// Publish Validation Tests
// =============================================================================

func TestValidatePublish(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		wantErr bool
	}{
		{"concrete", Exacts("a", "b"), false},
		{"wildcard", New(Exact("a"), Wildcard), true},
		{"remainder", Exacts("a").WithPrefixMatch(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublish(tt.topic)
			if tt.wantErr && !errors.Is(err, ErrNotPublishable) {
				t.Errorf("ValidatePublish() error = %v, want ErrNotPublishable", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidatePublish() error = %v, want nil", err)
			}
		})
	}
}

func TestIsPattern(t *testing.T) {
	tests := map[string]bool{
		"a.b":   false,
		"a.*":   true,
		"a.>":   true,
		"a*b.c": false,
		">":     true,
	}
	for subject, want := range tests {
		if got := IsPattern(subject); got != want {
			t.Errorf("IsPattern(%q) = %v, want %v", subject, got, want)
		}
	}
}

// generatorTopic is a Topic backed by a function instead of stored levels.
type generatorTopic struct {
	tokens []string
}

func (g generatorTopic) PrefixMatch() bool { return false }

func (g generatorTopic) Levels() iter.Seq[Level] {
	return func(yield func(Level) bool) {
		for _, tok := range g.tokens {
			if !yield(Exact(tok)) {
				return
			}
		}
	}
}

func TestToSubjectCustomTopic(t *testing.T) {
	g := generatorTopic{tokens: []string{"a", "b", "c"}}

	for range 2 {
		got, err := ToSubject(g)
		if err != nil {
			t.Fatalf("ToSubject() error = %v", err)
		}
		if got != "a.b.c" {
			t.Errorf("ToSubject() = %q, want %q", got, "a.b.c")
		}
	}

	if p := Collect(g); p.Len() != 3 || p.At(2) != Exact("c") {
		t.Errorf("Collect() = %v, want a.b.c", p)
	}
}
