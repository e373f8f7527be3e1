package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a SQL injection pattern detected in free-text
// input, such as the natural-language question a user submits.
type InjectionFinding struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	Field       string // which input field tripped the check
	Value       string // the offending text
}

// CheckFreeText runs libinjection over user-supplied free text. It is NOT
// applied to generated SQL (a legitimate SELECT trivially fingerprints as
// SQL); it exists to flag users smuggling SQL fragments through the
// question box so the attempt can be audited.
//
// Returns nil when the text is clean.
func CheckFreeText(field, value string) *InjectionFinding {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionFinding{
		Fingerprint: string(fingerprint),
		Field:       field,
		Value:       value,
	}
}
