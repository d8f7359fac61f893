package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes an option value that libinjection flagged.
type InjectionCheckResult struct {
	Option      string // parameter name
	Value       string
	Fingerprint string // libinjection token fingerprint, e.g. "s&1c"
}

// ScreenOption runs libinjection over a free-text option value.
// Returns nil when the value does not look like SQL.
//
// Every literal the query builder emits is dialect-quoted, so a hit is
// reported to the user but does not reject the value.
func ScreenOption(option, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		Option:      option,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}
