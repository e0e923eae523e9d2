package analyzer

import (
	"strings"
	"testing"

	"SettleX-Atlas/internal/lexicon"
)

func TestGreetingKeywordsResolveToGreeting(t *testing.T) {
	a := New(nil)
	for _, input := range []string{"hello", "hi", "Hey", "greetings", "morning", "evening", "start", "begin"} {
		if got := a.Analyze(input).Intent; got != lexicon.IntentGreeting {
			t.Fatalf("Analyze(%q).Intent = %s, want greeting", input, got)
		}
	}
}

func TestAmountExtraction(t *testing.T) {
	a := New(nil)
	cases := []struct {
		input string
		want  float64
	}{
		{"10k", 10000},
		{"2.5m", 2500000},
		{"1,200", 1200},
		{"send 3b", 3e9},
		{"about 12.75 units", 12.75},
		{"first 20 then 30", 20},
	}
	for _, tc := range cases {
		res := a.Analyze(tc.input)
		if !res.HasAmount || res.Amount != tc.want {
			t.Fatalf("Analyze(%q) amount = %v,%v want %v", tc.input, res.Amount, res.HasAmount, tc.want)
		}
	}

	if res := a.Analyze("no numbers here"); res.HasAmount {
		t.Fatalf("unexpected amount: %v", res.Amount)
	}
}

func TestOverflowingAmountIsIgnored(t *testing.T) {
	a := New(nil)
	res := a.Analyze("convert " + strings.Repeat("9", 300) + "b usd")
	if res.HasAmount || res.KnownAmount() {
		t.Fatalf("overflowing amount should be dropped, got %v", res.Amount)
	}
	if res.Currency != "USD" {
		t.Fatalf("currency should still be detected, got %q", res.Currency)
	}
}

func TestAmountAndCurrencyRegardlessOfSurroundingText(t *testing.T) {
	a := New(nil)
	for _, input := range []string{"5000 USD", "please send 5000 usd to my supplier", "USD 5000?"} {
		res := a.Analyze(input)
		if !res.HasAmount || res.Amount != 5000 {
			t.Fatalf("Analyze(%q) amount = %v", input, res.Amount)
		}
		if !res.HasCurrency || res.Currency != "USD" {
			t.Fatalf("Analyze(%q) currency = %q", input, res.Currency)
		}
	}
}

func TestCurrencyFirstMatchWins(t *testing.T) {
	a := New(nil)
	res := a.Analyze("euro or pound?")
	if res.Currency != "EUR" {
		t.Fatalf("expected EUR, got %q", res.Currency)
	}
	if res := a.Analyze("how are things"); res.HasCurrency {
		t.Fatalf("unexpected currency %q", res.Currency)
	}
}

func TestClassification(t *testing.T) {
	a := New(nil)
	cases := map[string]lexicon.Intent{
		"rate":                    lexicon.IntentRateInquiry,
		"convert 1000 sgd":        lexicon.IntentCalculator,
		"sign up":                 lexicon.IntentOnboarding,
		"how do I download fira":  lexicon.IntentComplianceFIRA,
		"what is fema":            lexicon.IntentExplainConcept,
		"is my money safe":        lexicon.IntentSecurity,
		"who are you":             lexicon.IntentPersonality,
		"cancel":                  lexicon.IntentUnknown,
		"":                        lexicon.IntentUnknown,
		"I want to file a complaint about rates": lexicon.IntentSupport,
		"raise a ticket":          lexicon.IntentSupport,
	}
	for input, want := range cases {
		if got := a.Analyze(input).Intent; got != want {
			t.Fatalf("Analyze(%q).Intent = %s, want %s", input, got, want)
		}
	}
}

func TestUnknownHasZeroScore(t *testing.T) {
	res := New(nil).Analyze("xyzzy")
	if res.Intent != lexicon.IntentUnknown || res.Score != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTieKeepsFirstDeclaredIntent(t *testing.T) {
	lex := lexicon.Default()
	lex.Intents = []lexicon.IntentSpec{
		{Name: lexicon.IntentSpeed, Weight: 2, Keywords: []string{"alpha"}},
		{Name: lexicon.IntentSecurity, Weight: 2, Keywords: []string{"beta"}},
	}
	res := New(lex).Analyze("alpha beta")
	if res.Intent != lexicon.IntentSpeed || res.Score != 2 {
		t.Fatalf("tie should keep first intent: %+v", res)
	}
}

func TestSentiment(t *testing.T) {
	a := New(nil)
	cases := map[string]lexicon.Sentiment{
		"my payment failed":        lexicon.SentimentNegative,
		"this is great and easy":   lexicon.SentimentPositive,
		"what is fema":             lexicon.SentimentNeutral,
		"need it asap":             lexicon.SentimentUrgent,
		"URGENT: great service":    lexicon.SentimentUrgent,
		"emergency, money blocked": lexicon.SentimentNegative,
	}
	for input, want := range cases {
		if got := a.Analyze(input).Sentiment; got != want {
			t.Fatalf("Analyze(%q).Sentiment = %s, want %s", input, got, want)
		}
	}
}

func TestRawTextPreserved(t *testing.T) {
	res := New(nil).Analyze("Convert 10K USD")
	if res.Raw != "Convert 10K USD" {
		t.Fatalf("raw text changed: %q", res.Raw)
	}
	if res.Amount != 10000 {
		t.Fatalf("uppercase suffix should be honoured: %v", res.Amount)
	}
}
