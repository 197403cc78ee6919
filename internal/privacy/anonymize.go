// Package privacy implements the PII boundary between trips and the
// marketplace. RFPs may only carry anonymized fields, so everything that
// flows into anonymized_requirements passes through this package first:
// field names are checked against an explicit allow-list and field values
// are scanned for PII-shaped content (emails, phone numbers, identifiers).
//
// The allow-list is deliberately closed: a field not named here never leaves
// the trip record, no matter what the questionnaire contains.
package privacy

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// Consent categories recognized by the consent lifecycle.
const (
	CategoryContactInfo  = "contact_info"
	CategoryDemographics = "demographics"
	CategoryLocation     = "location"
	CategoryPreferences  = "preferences"
)

// knownCategories is the closed set of grantable consent categories.
var knownCategories = map[string]struct{}{
	CategoryContactInfo:  {},
	CategoryDemographics: {},
	CategoryLocation:     {},
	CategoryPreferences:  {},
}

// KnownCategory reports whether the category may appear on a consent grant.
func KnownCategory(c string) bool {
	_, ok := knownCategories[c]
	return ok
}

// allowedRequirementFields is the closed set of keys an RFP's
// anonymized_requirements may carry. Everything else is stripped.
var allowedRequirementFields = map[string]struct{}{
	"destination":    {},
	"age_bracket":    {},
	"gender":         {},
	"party_size":     {},
	"trip_type":      {},
	"budget_bracket": {},
	"season":         {},
	"interests":      {},
	"pace":           {},
}

// AllowedRequirementFields returns the allow-list as a sorted slice, for
// diagnostics and tests.
func AllowedRequirementFields() []string {
	out := make([]string, 0, len(allowedRequirementFields))
	for k := range allowedRequirementFields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PII-shaped value patterns. Order matters when scrubbing: IDs → email →
// phone (phone is the loosest).
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone pattern (prevents matching hex characters from UUIDs).
	// Examples matched: "+1 212-555-1212", "212 555 1212", "(212) 555-1212".
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// ContainsPII reports whether a value looks like it carries personal data.
func ContainsPII(s string) bool {
	return uuidRE.MatchString(s) || emailRE.MatchString(s) || phoneRE.MatchString(s)
}

// Scrub replaces PII-shaped substrings with redaction markers. Used for log
// output of free-form values; validation paths reject instead of scrubbing.
func Scrub(s string) string {
	if s == "" {
		return s
	}
	out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
	out = phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	return out
}

// LeakError reports which field of a candidate requirements map violated the
// PII boundary, and why.
type LeakError struct {
	Field  string
	Reason string
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("pii leak in anonymized requirements: field %q %s", e.Field, e.Reason)
}

// BuildRequirements derives the anonymized_requirements map for an RFP from a
// trip. Only allow-listed fields are emitted; questionnaire answers are
// folded in only when their key is allow-listed AND their value carries no
// PII-shaped content. A PII-shaped value in an otherwise allowed field is an
// error, not a silent drop: publishing must fail loudly rather than leak.
func BuildRequirements(t *domain.Trip) (map[string]string, error) {
	out := map[string]string{
		"destination":    t.DisplayDestination,
		"age_bracket":    t.AgeBracket,
		"gender":         t.Gender,
		"party_size":     strconv.Itoa(t.PartySize),
		"trip_type":      t.TripType,
		"budget_bracket": t.BudgetBracket,
	}
	if out["destination"] == "" {
		out["destination"] = t.Destination
	}

	for k, v := range t.Questionnaire {
		if _, ok := allowedRequirementFields[k]; !ok {
			continue // not on the allow-list, never published
		}
		if ContainsPII(v) {
			return nil, &LeakError{Field: k, Reason: "value matches a PII pattern"}
		}
		out[k] = v
	}

	for k, v := range out {
		if v == "" {
			delete(out, k)
			continue
		}
		if ContainsPII(v) {
			return nil, &LeakError{Field: k, Reason: "value matches a PII pattern"}
		}
	}
	return out, nil
}
