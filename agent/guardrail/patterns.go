package guardrail

import "regexp"

// Fixed keyword/regex policy lists. A stronger classifier can be swapped in
// behind ValidateInput/SanitizeOutput without changing the engine contract.

var prohibitedContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhate\s+(speech|crime)\b`),
	regexp.MustCompile(`(?i)\b(racist|sexist)\b`),
	regexp.MustCompile(`(?i)\bdiscriminat(e|ion|ory)\b`),
	regexp.MustCompile(`(?i)\billegal\s+(drugs?|weapons?|substances?)\b`),
	regexp.MustCompile(`(?i)\b(counterfeit|stolen)\s+(goods?|items?|products?)\b`),
	regexp.MustCompile(`(?i)\bhow\s+to\s+(steal|shoplift)\b`),
}

var medicalAdvicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(cures?|treats?|heals?)\s+(acne|eczema|psoriasis|rosacea|cancer|disease)\b`),
	regexp.MustCompile(`(?i)\bmedical(ly)?\s+(grade|proven|recommended)\b`),
	regexp.MustCompile(`(?i)\b(dermatologist|doctor)[-\s]approved\b`),
	regexp.MustCompile(`(?i)\bclinically\s+proven\s+to\s+(cure|treat|heal)\b`),
}

// piiPattern pairs a label with its detection regex. Redaction replaces the
// whole match with redactedToken.
type piiPattern struct {
	name    string
	pattern *regexp.Regexp
}

const redactedToken = "[REDACTED]"

var piiPatterns = []piiPattern{
	{name: "ssn", pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{name: "card", pattern: regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{name: "email", pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{name: "phone", pattern: regexp.MustCompile(`\b(?:\+?\d{1,2}[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`)},
}

var bodyNegativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(lose|losing|shed)\s+(some\s+)?weight\b`),
	regexp.MustCompile(`(?i)\b(slim|skinny)\s+down\b`),
	regexp.MustCompile(`(?i)\bhide\s+(your\s+)?(belly|tummy|fat|flaws)\b`),
	regexp.MustCompile(`(?i)\b(too|very)\s+(fat|heavy|big)\s+for\b`),
	regexp.MustCompile(`(?i)\bflatter(s|ing)?\s+(your\s+)?problem\s+areas?\b`),
}

// colorblindConfusablePairs lists same-outfit color pairs known to be hard to
// distinguish for common color-vision deficiencies. Order-insensitive.
var colorblindConfusablePairs = [][2]string{
	{"red", "green"},
	{"green", "brown"},
	{"blue", "purple"},
	{"green", "blue"},
	{"light green", "yellow"},
}
