package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeCurrency(t *testing.T) {
	lex := Default()
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"USD", "USD", true},
		{"greenback please", "USD", true},
		{"Singapore dollar", "SGD", true},
		{"sterling", "GBP", true},
		{"  euro ", "EUR", true},
		{"baht", "THB", true},
		{"rupee", "INR", true},
		{"bitcoin", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := lex.NormalizeCurrency(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizeCurrency(%q) = %q,%v want %q,%v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeTerm(t *testing.T) {
	cases := map[string]string{
		"FEMA":     "fema",
		"fema?":    "fema",
		"HS Code":  "hs_code",
		"ad-code":  "ad_code",
		" pa_cb! ": "pa_cb",
		"123":      "",
	}
	for input, want := range cases {
		if got := NormalizeTerm(input); got != want {
			t.Fatalf("NormalizeTerm(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDefine(t *testing.T) {
	lex := Default()
	key, def, ok := lex.Define("EEFC")
	if !ok || key != "eefc" || def == "" {
		t.Fatalf("expected eefc definition, got %q %q %v", key, def, ok)
	}
	if _, _, ok := lex.Define("letter of credit"); ok {
		t.Fatalf("unexpected definition for unknown term")
	}
	if key, def, ok := lex.Define("b r c"); !ok || key != "brc" || def == "" {
		t.Fatalf("expected spaced brc to resolve, got %q %q %v", key, def, ok)
	}
	if key, _, ok := lex.Define("HS Code"); !ok || key != "hs_code" {
		t.Fatalf("expected hs_code, got %q %v", key, ok)
	}
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	b := Default()
	a.Dictionary["fema"] = "changed"
	a.Intents[0].Keywords[0] = "changed"
	if b.Dictionary["fema"] == "changed" || b.Intents[0].Keywords[0] == "changed" {
		t.Fatalf("Default must not share state between calls")
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	content := `
intents:
  greeting:
    keywords: [Namaste, hello]
  security:
    weight: 4
dictionary:
  Letter of Credit: "A bank guarantee of payment."
faq:
  limit: "Custom limit text."
sentiment:
  markers: [urgent]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	lex, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lex.Intents[0].Name != IntentGreeting || lex.Intents[0].Keywords[0] != "namaste" {
		t.Fatalf("greeting keywords not replaced: %+v", lex.Intents[0])
	}
	for _, spec := range lex.Intents {
		if spec.Name == IntentSecurity && spec.Weight != 4 {
			t.Fatalf("security weight not applied: %d", spec.Weight)
		}
	}
	if _, def, ok := lex.Define("letter of credit"); !ok || def != "A bank guarantee of payment." {
		t.Fatalf("dictionary overlay missing")
	}
	if lex.FAQ[FAQLimit] != "Custom limit text." {
		t.Fatalf("faq overlay missing")
	}
	if len(lex.Sentiment.Markers) != 1 {
		t.Fatalf("markers not replaced: %v", lex.Sentiment.Markers)
	}
}

func TestLoadRejectsUnknownIntent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte("intents:\n  weather:\n    keywords: [rain]\n"), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown intent")
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	lex, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lex.Intents) != len(defaultIntents()) {
		t.Fatalf("unexpected intents: %d", len(lex.Intents))
	}
}
