package proposal

import "regexp"

// emailPattern is deliberately permissive: a local part without "@" or
// whitespace, then dotted labels of letters/digits/hyphens ending in an
// alphabetic TLD of at least two letters. Good enough to catch typos,
// not an RFC 5322 parser.
var emailPattern = regexp.MustCompile(`(?i)^[^@\s]+@(?:[-a-z0-9]+\.)+[a-z]{2,}$`)

// ValidEmail reports whether the address passes the syntactic check.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validateEmail(email string, v *Violations) {
	if !ValidEmail(email) {
		v.Add("email", "is not valid")
	}
}
