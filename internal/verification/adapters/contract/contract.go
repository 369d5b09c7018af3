// Package contract checks that an adapter implementation honors the
// invariants the pipeline relies on: scores in range, stable answers for
// identical input, and categorized errors for malformed input.
package contract

import (
	"context"
	"reflect"
	"testing"

	"verity/internal/verification/adapters"
)

// Suite runs contract checks against whichever adapters are set.
type Suite struct {
	Extractor adapters.DocumentExtractor
	Matcher   adapters.BiometricMatcher
	Registry  adapters.RegistryVerifier
	Detectors []adapters.FraudDetector
}

// Run executes every applicable contract check as a subtest.
func (s *Suite) Run(t *testing.T) {
	t.Helper()
	if s.Extractor != nil {
		t.Run("extractor/"+s.Extractor.ID(), func(t *testing.T) { checkExtractor(t, s.Extractor) })
	}
	if s.Matcher != nil {
		t.Run("matcher/"+s.Matcher.ID(), func(t *testing.T) { checkMatcher(t, s.Matcher) })
	}
	if s.Registry != nil {
		t.Run("registry/"+s.Registry.ID(), func(t *testing.T) { checkRegistry(t, s.Registry) })
	}
	for _, d := range s.Detectors {
		t.Run("fraud/"+d.ID(), func(t *testing.T) { checkDetector(t, d) })
	}
}

func checkExtractor(t *testing.T, e adapters.DocumentExtractor) {
	ctx := context.Background()
	req := adapters.DocumentRequest{
		DocumentType: "passport",
		FileRef:      "contract://passport.jpg",
		ContentHash:  "contract-hash",
		Hints:        map[string]string{"full_name": "Ada Lovelace"},
	}
	first, err := e.Extract(ctx, req)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	checkScore(t, "confidence", first.Confidence)
	checkScore(t, "authenticity_score", first.AuthenticityScore)
	checkScore(t, "quality_score", first.QualityScore)
	second, err := e.Extract(ctx, req)
	if err != nil {
		t.Fatalf("second extract failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not stable for identical input: %+v vs %+v", first, second)
	}

	_, err = e.Extract(ctx, adapters.DocumentRequest{DocumentType: "passport"})
	expectCategorized(t, err)
}

func checkMatcher(t *testing.T, m adapters.BiometricMatcher) {
	res, err := m.Compare(context.Background(), adapters.BiometricRequest{
		SelfieRef: "contract://selfie.jpg", SelfieHash: "s",
		DocumentRef: "contract://passport.jpg", DocumentHash: "d",
	})
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	checkScore(t, "similarity", res.Similarity)
	checkScore(t, "liveness_score", res.LivenessScore)
}

func checkRegistry(t *testing.T, r adapters.RegistryVerifier) {
	ctx := context.Background()
	res, err := r.Verify(ctx, adapters.RegistryRequest{
		IdentifierType:  adapters.IdentifierNationalID,
		IdentifierValue: "AB123456",
		Country:         "GB",
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	checkScore(t, "confidence", res.Confidence)

	_, err = r.Verify(ctx, adapters.RegistryRequest{IdentifierType: adapters.IdentifierNationalID})
	expectCategorized(t, err)
}

func checkDetector(t *testing.T, d adapters.FraudDetector) {
	sig, err := d.Detect(context.Background(), adapters.FraudRequest{
		ApplicationID:   "contract-app",
		ApplicationType: "individual",
		UserAgent:       "Mozilla/5.0",
		Submissions:     1,
	})
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if sig.Detector != d.ID() {
		t.Errorf("expected detector %s, got %s", d.ID(), sig.Detector)
	}
	checkScore(t, "score", sig.Score)
}

func checkScore(t *testing.T, name string, v float64) {
	t.Helper()
	if v < 0 || v > 1 {
		t.Errorf("%s %f out of range [0, 1]", name, v)
	}
}

func expectCategorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Error("expected an error for malformed input")
		return
	}
	if adapters.IsRetryable(err) {
		t.Errorf("malformed input must not be retryable: %v", err)
	}
	if adapters.CategoryOf(err) == adapters.ErrorInternal {
		t.Errorf("error is not categorized: %v", err)
	}
}
