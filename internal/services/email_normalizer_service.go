package services

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// trailing digits on the local part are tracker disambiguation noise
	// ("jane.doe01" and "jane.doe" are the same person)
	numericSuffixPattern = regexp.MustCompile(`^(.*[^0-9])[0-9]+$`)
)

// placeholder strings seen in feed data for absent identities
var identityPlaceholders = map[string]bool{
	"unknown": true,
	"none":    true,
	"null":    true,
	"n/a":     true,
	"nobody":  true,
}

// EmailNormalizerService canonicalizes raw identity strings from either feed
// into stable lowercase email keys. Normalization is a pure function: the same
// input always yields the same output, and normalizing an already-normalized
// value is a no-op. Unresolvable input yields the empty string.
type EmailNormalizerService struct {
	domainEquivalences map[string]string
}

// NewEmailNormalizerService creates a normalizer with the given
// secondary-domain to canonical-domain rewrite pairs
func NewEmailNormalizerService(domainEquivalences map[string]string) *EmailNormalizerService {
	if domainEquivalences == nil {
		domainEquivalences = make(map[string]string)
	}
	return &EmailNormalizerService{domainEquivalences: domainEquivalences}
}

// Normalize canonicalizes a raw identity string, returning "" when no email
// can be derived from it
func (s *EmailNormalizerService) Normalize(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || identityPlaceholders[strings.ToLower(value)] {
		return ""
	}

	// Federation prefixes of the form PROVIDER_roleinfo/email reduce to the
	// trailing email.
	if idx := strings.LastIndex(value, "/"); idx >= 0 {
		if tail := value[idx+1:]; emailPattern.MatchString(tail) {
			value = tail
		}
	}

	// Whether the input is a bare address or a structured payload (tracker
	// account JSON), the first email-shaped substring is the identity. No
	// match means the identity is unresolvable, not an error.
	match := emailPattern.FindString(value)
	if match == "" {
		return ""
	}

	value = strings.ToLower(match)

	at := strings.LastIndex(value, "@")
	local, domain := value[:at], value[at+1:]

	if canonical, ok := s.domainEquivalences[domain]; ok {
		domain = canonical
	}

	if m := numericSuffixPattern.FindStringSubmatch(local); m != nil {
		// stripping must not leave a dangling separator ("name.01" stays intact)
		if stripped := m[1]; !strings.ContainsAny(stripped[len(stripped)-1:], "._-") {
			local = stripped
		}
	}

	return local + "@" + domain
}
