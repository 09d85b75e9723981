package classify

import (
	"testing"

	"decisionline/internal/domain"
)

func TestClassifyKeywordFamilies(t *testing.T) {
	k := NewKeyword(nil)
	cases := []struct {
		text string
		want domain.DecisionType
	}{
		{"Should we hire a senior SRE", domain.TypeHire},
		{"Pick a monitoring tool", domain.TypeVendor},
		{"Refactor the ingestion stack", domain.TypeArchitecture},
		{"Reallocate budget for Q3", domain.TypeResource},
		{"Change the deploy process", domain.TypeProcess},
		{"Respond to the database outage", domain.TypeIncident},
		{"Invest in the new data initiative", domain.TypeInvestment},
	}
	for _, tc := range cases {
		got, matched := k.Classify(tc.text)
		if !matched || got != tc.want {
			t.Errorf("Classify(%q) = %s (matched=%v), want %s", tc.text, got, matched, tc.want)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	k := NewKeyword(nil)
	// both hire and resource keywords present; hire wins by priority
	got, matched := k.Classify("Approve budget for hiring two engineers")
	if !matched || got != domain.TypeHire {
		t.Fatalf("got %s (matched=%v), want hire", got, matched)
	}
}

func TestClassifyFallsBackToStrategic(t *testing.T) {
	k := NewKeyword(nil)
	got, matched := k.Classify("Open a second office next year")
	if matched || got != domain.TypeStrategic {
		t.Fatalf("got %s (matched=%v), want strategic fallback", got, matched)
	}
}

func TestClassifyPrefixMatching(t *testing.T) {
	k := NewKeyword(nil)
	got, matched := k.Classify("We hired nobody but interviews continue")
	if !matched || got != domain.TypeHire {
		t.Fatalf("got %s (matched=%v), want hire via prefix", got, matched)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	k := NewKeyword(nil)
	first, _ := k.Classify("platform or tool or vendor")
	for i := 0; i < 50; i++ {
		got, _ := k.Classify("platform or tool or vendor")
		if got != first {
			t.Fatalf("iteration %d: got %s, first was %s", i, got, first)
		}
	}
}

func TestClassifyExtraKeywords(t *testing.T) {
	k := NewKeyword(map[domain.DecisionType][]string{
		domain.TypeIncident: {"sev1"},
	})
	got, matched := k.Classify("Declare a SEV1 and page everyone")
	if !matched || got != domain.TypeIncident {
		t.Fatalf("got %s (matched=%v), want incident via extra keyword", got, matched)
	}
}
