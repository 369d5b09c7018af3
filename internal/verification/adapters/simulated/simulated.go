// Package simulated provides vendor-free adapters for local runs and demos.
// Every answer is derived from a hash of the input, so repeated calls agree.
//
// Magic markers in file references or identifier values drive the unhappy paths:
//
//	file ref containing "tamper"  -> tampered document
//	selfie ref containing "spoof" -> spoof detected
//	identifier ending in "000"    -> invalid registry record
//	identifier starting "SANC"    -> sanctions listed
package simulated

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"verity/internal/verification/adapters"
)

// Option configures a simulated adapter.
type Option func(*base)

// WithLatency delays every call, honoring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(b *base) {
		b.latency = d
	}
}

type base struct {
	id      string
	latency time.Duration
}

func newBase(id string, opts []Option) base {
	b := base{id: id}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) ID() string { return b.id }

func (b base) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return adapters.NewError(adapters.ErrorTimeout, b.id, "simulated call cancelled", ctx.Err())
	case <-t.C:
		return nil
	}
}

// spread maps s deterministically onto [lo, hi].
func spread(s string, lo, hi float64) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return lo + (hi-lo)*float64(h.Sum32()%1000)/999
}

// Extractor simulates OCR plus authenticity scoring.
type Extractor struct{ base }

func NewExtractor(opts ...Option) *Extractor {
	return &Extractor{newBase("sim-document-extractor", opts)}
}

func (e *Extractor) Extract(ctx context.Context, req adapters.DocumentRequest) (*adapters.Extraction, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	if req.ContentHash == "" {
		return nil, adapters.NewError(adapters.ErrorBadData, e.id, "content hash is required", nil)
	}
	fields := make(map[string]string, len(req.Hints))
	for k, v := range req.Hints {
		fields[k] = v
	}
	out := &adapters.Extraction{
		Fields:            fields,
		Confidence:        spread("conf:"+req.ContentHash, 0.85, 0.99),
		AuthenticityScore: spread("auth:"+req.ContentHash, 0.80, 0.98),
		QualityScore:      spread("qual:"+req.ContentHash, 0.70, 0.99),
	}
	if strings.Contains(strings.ToLower(req.FileRef), "tamper") {
		out.Tampered = true
		out.AuthenticityScore = 0.1
	}
	return out, nil
}

// Matcher simulates face comparison and liveness.
type Matcher struct{ base }

func NewMatcher(opts ...Option) *Matcher {
	return &Matcher{newBase("sim-biometric-matcher", opts)}
}

func (m *Matcher) Compare(ctx context.Context, req adapters.BiometricRequest) (*adapters.BiometricMatch, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	key := req.SelfieHash + "|" + req.DocumentHash
	out := &adapters.BiometricMatch{
		Similarity:    spread("sim:"+key, 0.86, 0.99),
		LivenessScore: spread("live:"+key, 0.85, 0.99),
	}
	out.IsMatch = out.Similarity >= 0.8
	if strings.Contains(strings.ToLower(req.SelfieRef), "spoof") {
		out.SpoofDetected = true
		out.LivenessScore = 0.05
	}
	return out, nil
}

// Registry simulates a government or company registry.
type Registry struct{ base }

func NewRegistry(opts ...Option) *Registry {
	return &Registry{newBase("sim-registry", opts)}
}

func (r *Registry) Verify(ctx context.Context, req adapters.RegistryRequest) (*adapters.RegistryCheck, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	value := strings.ToUpper(strings.TrimSpace(req.IdentifierValue))
	if value == "" {
		return nil, adapters.NewError(adapters.ErrorBadData, r.id, "identifier value is required", nil)
	}
	out := &adapters.RegistryCheck{
		IsValid:    !strings.HasSuffix(value, "000"),
		Confidence: spread(req.IdentifierType+":"+value, 0.85, 0.99),
		Listed:     strings.HasPrefix(value, "SANC"),
		Details: map[string]string{
			"authority": "simulated-" + strings.ToLower(req.Country),
			"type":      req.IdentifierType,
		},
	}
	return out, nil
}

// BehavioralDetector flags scripted or repeated submissions.
type BehavioralDetector struct{ base }

func NewBehavioralDetector(opts ...Option) *BehavioralDetector {
	return &BehavioralDetector{newBase("behavioral-anomaly", opts)}
}

func (d *BehavioralDetector) Detect(ctx context.Context, req adapters.FraudRequest) (*adapters.FraudSignal, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	sig := &adapters.FraudSignal{Detector: d.id, Score: 0.05}
	if req.UserAgent == "" {
		sig.Score = 0.4
		sig.Indicators = append(sig.Indicators, "missing_user_agent")
	}
	if req.Submissions > 2 {
		sig.Score += 0.2
		sig.Indicators = append(sig.Indicators, "repeated_submissions")
	}
	return sig, nil
}

// HistoryDetector matches the applicant against known fraud patterns.
type HistoryDetector struct{ base }

func NewHistoryDetector(opts ...Option) *HistoryDetector {
	return &HistoryDetector{newBase("historical-pattern-match", opts)}
}

var disposableDomains = []string{"mailinator.com", "tempmail.dev", "guerrillamail.com"}

func (d *HistoryDetector) Detect(ctx context.Context, req adapters.FraudRequest) (*adapters.FraudSignal, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	sig := &adapters.FraudSignal{Detector: d.id, Score: 0.05}
	email := strings.ToLower(req.Metadata["email"])
	for _, domain := range disposableDomains {
		if strings.HasSuffix(email, "@"+domain) {
			sig.Score = 0.6
			sig.Indicators = append(sig.Indicators, "disposable_email")
		}
	}
	return sig, nil
}
