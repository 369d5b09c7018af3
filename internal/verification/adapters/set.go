package adapters

import "fmt"

// Set is the collection of adapters the pipeline calls. Fraud detectors are
// optional; the others are required.
type Set struct {
	Extractor      DocumentExtractor
	Matcher        BiometricMatcher
	Registry       RegistryVerifier
	FraudDetectors []FraudDetector
}

// Validate checks required adapters are present and IDs are unique.
func (s Set) Validate() error {
	if s.Extractor == nil {
		return fmt.Errorf("document extractor is required")
	}
	if s.Matcher == nil {
		return fmt.Errorf("biometric matcher is required")
	}
	if s.Registry == nil {
		return fmt.Errorf("registry verifier is required")
	}
	seen := map[string]bool{
		s.Extractor.ID(): true,
	}
	for _, id := range []string{s.Matcher.ID(), s.Registry.ID()} {
		if seen[id] {
			return fmt.Errorf("adapter %s registered twice", id)
		}
		seen[id] = true
	}
	for _, d := range s.FraudDetectors {
		if seen[d.ID()] {
			return fmt.Errorf("adapter %s registered twice", d.ID())
		}
		seen[d.ID()] = true
	}
	return nil
}

// IDs lists every adapter ID, used to provision breakers and limiters.
func (s Set) IDs() []string {
	ids := []string{s.Extractor.ID(), s.Matcher.ID(), s.Registry.ID()}
	for _, d := range s.FraudDetectors {
		ids = append(ids, d.ID())
	}
	return ids
}
