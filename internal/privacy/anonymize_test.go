package privacy

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

func baseTrip() *domain.Trip {
	return &domain.Trip{
		ID:            "t1",
		UserID:        "u1",
		Destination:   "Goa",
		AgeBracket:    "25-34",
		Gender:        "female",
		PartySize:     4,
		TripType:      "family",
		BudgetBracket: "mid",
		Questionnaire: map[string]string{},
	}
}

func TestContainsPII(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"beach and food", false},
		{"family of 4", false},
		{"call me at +1 212-555-1212", true},
		{"reach me: jane.doe@example.com", true},
		{"ref 0f8fad5b-d9cb-469f-a165-70867728950e", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := ContainsPII(tc.in); got != tc.want {
			t.Errorf("ContainsPII(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestScrub(t *testing.T) {
	in := "jane.doe@example.com booked 0f8fad5b-d9cb-469f-a165-70867728950e at (212) 555-1212"
	out := Scrub(in)
	for _, leaked := range []string{"jane.doe", "0f8fad5b", "555-1212"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("scrubbed output still contains %q: %s", leaked, out)
		}
	}
	for _, marker := range []string{"[REDACTED:email]", "[REDACTED:id]", "[REDACTED:phone]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("expected marker %s in %q", marker, out)
		}
	}
}

func TestBuildRequirements_AllowListOnly(t *testing.T) {
	trip := baseTrip()
	trip.Questionnaire = map[string]string{
		"interests":    "beaches, seafood",
		"pace":         "relaxed",
		"full_name":    "Jane Doe", // never allow-listed
		"email":        "jane@example.com",
		"phone_number": "+1 212 555 1212",
	}

	req, err := BuildRequirements(trip)
	if err != nil {
		t.Fatalf("BuildRequirements: %v", err)
	}

	for _, forbidden := range []string{"full_name", "email", "phone_number"} {
		if _, ok := req[forbidden]; ok {
			t.Fatalf("disallowed field %q leaked into requirements", forbidden)
		}
	}
	if req["interests"] != "beaches, seafood" || req["pace"] != "relaxed" {
		t.Fatalf("allow-listed questionnaire fields missing: %+v", req)
	}
	if req["party_size"] != "4" || req["trip_type"] != "family" {
		t.Fatalf("profile fields missing: %+v", req)
	}
}

func TestBuildRequirements_RejectsPIIValueInAllowedField(t *testing.T) {
	trip := baseTrip()
	trip.Questionnaire = map[string]string{
		"interests": "mail me at jane@example.com",
	}
	_, err := BuildRequirements(trip)
	if err == nil {
		t.Fatal("expected a leak error for PII inside an allow-listed field")
	}
	var leak *LeakError
	if ok := asLeak(err, &leak); !ok || leak.Field != "interests" {
		t.Fatalf("expected LeakError on interests, got %v", err)
	}
}

func asLeak(err error, target **LeakError) bool {
	le, ok := err.(*LeakError)
	if ok {
		*target = le
	}
	return ok
}

// Fuzz-flavored property check: whatever the questionnaire contains, the
// output never carries a key outside the allow-list and never carries a
// PII-shaped value.
func TestBuildRequirements_PropertyNoLeaks(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	piiValues := []string{
		"jane@example.com",
		"+44 20 7946 0958",
		"0f8fad5b-d9cb-469f-a165-70867728950e",
	}
	safeValues := []string{"hiking", "luxury", "slow travel", "street food"}
	keys := append(AllowedRequirementFields(),
		"full_name", "email", "phone", "passport_no", "home_address")

	allowed := map[string]struct{}{}
	for _, k := range AllowedRequirementFields() {
		allowed[k] = struct{}{}
	}

	for i := 0; i < 200; i++ {
		trip := baseTrip()
		for j := 0; j < 1+rng.Intn(6); j++ {
			k := keys[rng.Intn(len(keys))]
			var v string
			if rng.Intn(3) == 0 {
				v = piiValues[rng.Intn(len(piiValues))]
			} else {
				v = safeValues[rng.Intn(len(safeValues))]
			}
			trip.Questionnaire[k] = v
		}

		req, err := BuildRequirements(trip)
		if err != nil {
			continue // a rejected build leaks nothing by definition
		}
		for k, v := range req {
			if _, ok := allowed[k]; !ok {
				t.Fatalf("iteration %d: field %q escaped the allow-list", i, k)
			}
			if ContainsPII(v) {
				t.Fatalf("iteration %d: value %q of %q is PII-shaped", i, v, k)
			}
		}
	}
}

func TestKnownCategory(t *testing.T) {
	if !KnownCategory(CategoryContactInfo) || !KnownCategory(CategoryPreferences) {
		t.Fatal("built-in categories should be known")
	}
	if KnownCategory("bank_details") {
		t.Fatal("unknown category must be rejected")
	}
}
