// Package normalize canonicalizes contact strings so records from different
// scanners can be compared. Malformed input never errors; results carry a
// Valid flag and a Reason instead.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

const (
	// minPhoneDigits rejects extensions and short codes ("0", "911") that
	// would otherwise link unrelated records.
	minPhoneDigits = 7
	// maxPhoneDigits is the E.164 upper bound.
	maxPhoneDigits = 15
)

type Normalizer struct {
	// DefaultCountryCode is prefixed to numbers written without one, e.g. "1".
	// When empty such numbers keep their bare digits and are not guessed.
	DefaultCountryCode string
	// FoldGmailDots removes dots from gmail.com local parts.
	FoldGmailDots bool
}

type EmailResult struct {
	Raw         string `json:"raw"`
	Value       string `json:"value,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Registrable string `json:"registrable,omitempty"`
	Valid       bool   `json:"valid"`
	Reason      string `json:"reason,omitempty"`
}

type PhoneResult struct {
	Raw            string `json:"raw"`
	Value          string `json:"value,omitempty"`
	Valid          bool   `json:"valid"`
	AssumedCountry bool   `json:"assumed_country,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Email lower-cases the address and strips a "+tag" suffix from the local
// part. Tag stripping is a provider heuristic, not an RFC rule.
func (n Normalizer) Email(raw string) EmailResult {
	res := EmailResult{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		res.Reason = "empty"
		return res
	}
	if strings.Count(s, "@") != 1 {
		if !strings.Contains(s, "@") {
			res.Reason = "missing @"
		} else {
			res.Reason = "multiple @"
		}
		return res
	}

	at := strings.IndexByte(s, '@')
	local := strings.ToLower(s[:at])
	domain := strings.TrimSuffix(strings.ToLower(s[at+1:]), ".")

	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	if local == "" {
		res.Reason = "empty local part"
		return res
	}
	if domain == "" {
		res.Reason = "empty domain"
		return res
	}
	if strings.IndexFunc(local+domain, unicode.IsSpace) >= 0 {
		res.Reason = "contains whitespace"
		return res
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		res.Reason = "domain has no registrable part"
		return res
	}
	if n.FoldGmailDots && (domain == "gmail.com" || domain == "googlemail.com") {
		local = strings.ReplaceAll(local, ".", "")
		domain = "gmail.com"
		registrable = domain
	}

	res.Value = local + "@" + domain
	res.Domain = domain
	res.Registrable = registrable
	res.Valid = true
	return res
}

// Phone keeps a leading "+" (or "00" international prefix) and drops every
// other non-digit. Numbers without a country code get DefaultCountryCode
// when one is configured and are flagged AssumedCountry.
func (n Normalizer) Phone(raw string) PhoneResult {
	res := PhoneResult{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		res.Reason = "empty"
		return res
	}

	international := strings.HasPrefix(s, "+")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		res.Reason = "no digits"
		return res
	}
	if !international && strings.HasPrefix(digits, "00") {
		international = true
		digits = digits[2:]
		if digits == "" {
			res.Reason = "no digits"
			return res
		}
	}

	if len(digits) > maxPhoneDigits {
		res.Reason = "too many digits"
		return res
	}
	if len(digits) < minPhoneDigits {
		res.Reason = "too few digits"
		return res
	}

	if !international {
		cc := strings.TrimLeft(n.DefaultCountryCode, "+")
		if cc == "" {
			res.Value = digits
			res.Valid = true
			res.Reason = "no country code"
			return res
		}
		if len(cc)+len(digits) > maxPhoneDigits {
			res.Reason = "too many digits"
			return res
		}
		digits = cc + digits
		res.AssumedCountry = true
	}

	res.Value = "+" + digits
	res.Valid = true
	return res
}
