package diag

import (
	"net/http"
	"strings"
)

// Signature describes a known failure fingerprint on the projects call: an
// exact HTTP status paired with a case-sensitive body substring. A reply
// matching both means the instance is exhibiting a failure mode we can
// explain to the operator.
type Signature struct {
	// Name is a short identifier used in logs.
	Name string

	// Status is the exact HTTP status the failure presents with.
	Status int

	// Substring must appear verbatim anywhere in the raw response body.
	Substring string

	// Summary is the one-line headline printed when the signature matches.
	Summary string

	// Advice lines tell the operator what to change.
	Advice []string
}

// Matches reports whether the reply fingerprint matches this signature.
// The substring comparison is case-sensitive against the raw body.
func (s Signature) Matches(status int, body []byte) bool {
	return status == s.Status && strings.Contains(string(body), s.Substring)
}

// MatchSignatures returns every signature the reply matches, in
// declaration order.
func MatchSignatures(sigs []Signature, status int, body []byte) []Signature {
	var matched []Signature
	for _, s := range sigs {
		if s.Matches(status, body) {
			matched = append(matched, s)
		}
	}
	return matched
}

// KnownIssues is the default signature list. One entry today: Jama answers
// the projects call with a bare 500 IndexOutOfBoundsException when the
// OAuth client's scope is "Token Information" rather than "read".
var KnownIssues = []Signature{
	{
		Name:      "token-information-scope",
		Status:    http.StatusInternalServerError,
		Substring: "IndexOutOfBounds",
		Summary:   "OAuth client scope misconfiguration",
		Advice: []string{
			"The OAuth client scope is set to 'Token Information' instead of 'read'.",
			"Change it to 'read' in the Jama Admin Console, then run this check again.",
		},
	},
}
