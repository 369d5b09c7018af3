package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verity/internal/platform/config"
	"verity/internal/verification/adapters"
	"verity/internal/verification/adapters/mocks"
	"verity/internal/verification/cache"
	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
)

type OrchestratorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	extractor *mocks.MockDocumentExtractor
	matcher   *mocks.MockBiometricMatcher
	registry  *mocks.MockRegistryVerifier
	detector  *mocks.MockFraudDetector
	cache     *cache.InMemory
	cfg       config.PipelineConfig
	ctx       context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.extractor = mocks.NewMockDocumentExtractor(s.ctrl)
	s.matcher = mocks.NewMockBiometricMatcher(s.ctrl)
	s.registry = mocks.NewMockRegistryVerifier(s.ctrl)
	s.detector = mocks.NewMockFraudDetector(s.ctrl)
	s.extractor.EXPECT().ID().Return("extractor").AnyTimes()
	s.matcher.EXPECT().ID().Return("matcher").AnyTimes()
	s.registry.EXPECT().ID().Return("registry").AnyTimes()
	s.detector.EXPECT().ID().Return("behavioral-anomaly").AnyTimes()
	s.cache = cache.NewInMemory()
	s.cfg = config.PipelineConfig{
		MaxConcurrency:  4,
		AttemptTimeout:  50 * time.Millisecond,
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		BackoffFactor:   2,
		MaxBackoff:      5 * time.Millisecond,
		BreakerFailures: 10,
		BreakerCooldown: time.Minute,
	}
	s.ctx = context.Background()
}

func (s *OrchestratorSuite) newOrchestrator(detectors ...adapters.FraudDetector) *Orchestrator {
	if detectors == nil {
		detectors = []adapters.FraudDetector{s.detector}
	}
	o, err := New(adapters.Set{
		Extractor:      s.extractor,
		Matcher:        s.matcher,
		Registry:       s.registry,
		FraudDetectors: detectors,
	}, s.cache, s.cfg, config.DefaultPolicy().CacheTTL)
	s.Require().NoError(err)
	return o
}

var (
	passport = models.DocumentRef{ID: id.NewDocumentID(), Type: id.DocumentPassport, FileRef: "s3://docs/passport.jpg", ContentHash: "sha256:aa"}
	selfie   = models.DocumentRef{ID: id.NewDocumentID(), Type: id.DocumentPhoto, FileRef: "s3://docs/selfie.jpg", ContentHash: "sha256:bb"}
)

func input(step wfmodels.StepName, criteria wfmodels.Criteria) models.StepInput {
	return models.StepInput{
		ApplicationID:   id.NewApplicationID(),
		ApplicationType: id.ApplicationTypeIndividual,
		Step:            step,
		Criteria:        criteria,
		Metadata:        map[string]string{"full_name": "Ada Lovelace", "national_id": "AB123456", "country": "GB"},
		Documents:       []models.DocumentRef{passport, selfie},
	}
}

func (s *OrchestratorSuite) TestDocumentVerificationSkipsPhotosAndCaches() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req adapters.DocumentRequest) (*adapters.Extraction, error) {
			s.Equal("passport", req.DocumentType)
			s.Equal("Ada Lovelace", req.Hints["full_name"])
			return &adapters.Extraction{Confidence: 0.95, AuthenticityScore: 0.92, QualityScore: 0.9}, nil
		}).Times(1)

	o := s.newOrchestrator()
	criteria := wfmodels.Criteria{RequireResolved: true, MinConfidence: map[string]float64{"extraction": 0.6}}

	first := o.Execute(s.ctx, input(wfmodels.StepDocumentVerification, criteria))
	s.Equal(wfmodels.VerdictPass, first.Verdict)
	s.Require().Len(first.Results, 1)
	s.Equal(models.DocumentKey(passport.ID), first.Results[0].Key)
	s.False(first.Results[0].Cached)

	second := o.Execute(s.ctx, input(wfmodels.StepDocumentVerification, criteria))
	s.True(second.Results[0].Cached)
	s.InDelta(0.95, second.Results[0].Extraction.Confidence, 1e-9)
}

func (s *OrchestratorSuite) TestRetriesExhaustedIsUnresolved() {
	s.registry.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(nil, adapters.NewError(adapters.ErrorOutage, "registry", "503", nil)).Times(3)

	out := s.newOrchestrator().Execute(s.ctx, input(wfmodels.StepRegistryVerification, wfmodels.Criteria{}))

	s.Require().Len(out.Results, 1)
	s.Equal(models.CallUnresolved, out.Results[0].Status)
	s.Equal(3, out.Results[0].Attempts)
	s.Equal(adapters.ErrorOutage, out.Results[0].ErrorCategory)
	s.Equal(wfmodels.VerdictNeedsReview, out.Verdict, "permissive criteria let the step complete")
}

func (s *OrchestratorSuite) TestUnresolvedFailsWhenResolutionRequired() {
	s.registry.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(nil, adapters.NewError(adapters.ErrorRateLimited, "registry", "429", nil)).Times(3)

	out := s.newOrchestrator().Execute(s.ctx, input(wfmodels.StepRegistryVerification, wfmodels.Criteria{RequireResolved: true}))
	s.Equal(wfmodels.VerdictFail, out.Verdict)
}

func (s *OrchestratorSuite) TestNonRetryableIsErrorAndNotRetried() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		Return(nil, adapters.NewError(adapters.ErrorBadData, "extractor", "unreadable image", nil)).Times(1)

	out := s.newOrchestrator().Execute(s.ctx, input(wfmodels.StepDocumentVerification, wfmodels.Criteria{}))
	s.Equal(models.CallError, out.Results[0].Status)
	s.Equal(1, out.Results[0].Attempts)
	s.Equal(wfmodels.VerdictFail, out.Verdict)
	s.True(out.Flagged())
}

func (s *OrchestratorSuite) TestAttemptTimeoutRetriesThenUnresolved() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ adapters.DocumentRequest) (*adapters.Extraction, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).Times(3)

	out := s.newOrchestrator().Execute(s.ctx, input(wfmodels.StepDocumentVerification, wfmodels.Criteria{}))
	s.Equal(models.CallUnresolved, out.Results[0].Status)
	s.Equal(adapters.ErrorTimeout, out.Results[0].ErrorCategory)
}

func (s *OrchestratorSuite) TestAttemptTimeoutHoldsForAdapterIgnoringContext() {
	s.cfg.MaxAttempts = 1
	s.registry.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, adapters.RegistryRequest) (*adapters.RegistryCheck, error) {
			time.Sleep(time.Second)
			return &adapters.RegistryCheck{IsValid: true, Confidence: 1}, nil
		}).Times(1)

	start := time.Now()
	out := s.newOrchestrator().Execute(s.ctx, input(wfmodels.StepRegistryVerification, wfmodels.Criteria{}))

	s.Less(time.Since(start), 500*time.Millisecond)
	s.Require().Len(out.Results, 1)
	s.Equal(models.CallUnresolved, out.Results[0].Status)
	s.Equal(adapters.ErrorTimeout, out.Results[0].ErrorCategory)
}

func TestWithinDiscardsLateAnswer(t *testing.T) {
	v, err := within(context.Background(), 10*time.Millisecond, func(ctx context.Context) (*int, error) {
		<-ctx.Done()
		n := 1
		return &n, nil
	})
	if v != nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded and no value, got %v, %v", v, err)
	}
}

func (s *OrchestratorSuite) TestOpenCircuitSkipsTheAdapter() {
	s.cfg.BreakerFailures = 2
	s.registry.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).Times(2)

	o := s.newOrchestrator()
	first := o.Execute(s.ctx, input(wfmodels.StepRegistryVerification, wfmodels.Criteria{}))
	s.Equal(models.CallUnresolved, first.Results[0].Status)
	s.Equal("circuit open", first.Results[0].Message, "the third attempt is refused by the opened breaker")

	second := o.Execute(s.ctx, input(wfmodels.StepRegistryVerification, wfmodels.Criteria{}))
	s.Equal(models.CallUnresolved, second.Results[0].Status)
	s.Equal("circuit open", second.Results[0].Message)
	s.Zero(second.Results[0].Attempts)
}

func (s *OrchestratorSuite) TestIdentityVerification() {
	s.Run("no photo is not applicable", func() {
		in := input(wfmodels.StepIdentityVerification, wfmodels.Criteria{})
		in.Documents = []models.DocumentRef{passport}
		out := s.newOrchestrator().Execute(s.ctx, in)
		s.Equal(wfmodels.VerdictNotApplicable, out.Verdict)
		s.Empty(out.Results)
	})

	s.Run("spoof fails and is never cached", func() {
		s.matcher.EXPECT().Compare(gomock.Any(), adapters.BiometricRequest{
			SelfieRef: selfie.FileRef, SelfieHash: selfie.ContentHash,
			DocumentRef: passport.FileRef, DocumentHash: passport.ContentHash,
		}).Return(&adapters.BiometricMatch{IsMatch: true, Similarity: 0.97, LivenessScore: 0.9, SpoofDetected: true}, nil).Times(2)

		o := s.newOrchestrator()
		for range 2 {
			out := o.Execute(s.ctx, input(wfmodels.StepIdentityVerification, wfmodels.Criteria{}))
			s.Equal(wfmodels.VerdictFail, out.Verdict)
			s.Contains(out.Reasons, "biometric_spoof:"+selfie.ID.String()+"/"+passport.ID.String())
			s.False(out.Results[0].Cached)
		}
	})
}

func (s *OrchestratorSuite) TestFanOutIsBoundedAndAwaitsEveryCall() {
	s.cfg.MaxConcurrency = 2
	var inFlight, peak, done atomic.Int32

	var detectors []adapters.FraudDetector
	for i := range 6 {
		d := mocks.NewMockFraudDetector(s.ctrl)
		name := fmt.Sprintf("detector-%d", i)
		d.EXPECT().ID().Return(name).AnyTimes()
		d.EXPECT().Detect(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, adapters.FraudRequest) (*adapters.FraudSignal, error) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				done.Add(1)
				return &adapters.FraudSignal{Score: 0.1}, nil
			})
		detectors = append(detectors, d)
	}

	out := s.newOrchestrator(detectors...).Execute(s.ctx, input(wfmodels.StepRiskAssessment, wfmodels.Criteria{}))

	s.Equal(int32(6), done.Load())
	s.LessOrEqual(peak.Load(), int32(2))
	s.Len(out.Results, 6)
	for i, r := range out.Results {
		s.Equal(fmt.Sprintf("detector-%d", i), r.Fraud.Detector, "results keep call order")
	}
	s.Equal(wfmodels.VerdictPass, out.Verdict)
}

func (s *OrchestratorSuite) TestReextractInvalidatesTheCache() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		Return(&adapters.Extraction{Confidence: 0.4, AuthenticityScore: 0.9}, nil)
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		Return(&adapters.Extraction{Confidence: 0.9, AuthenticityScore: 0.9}, nil)

	o := s.newOrchestrator()
	first := o.Execute(s.ctx, input(wfmodels.StepDocumentVerification, wfmodels.Criteria{}))
	s.InDelta(0.4, first.Results[0].Extraction.Confidence, 1e-9)

	again := o.Reextract(s.ctx, passport, nil)
	s.Equal(models.CallResolved, again.Status)
	s.False(again.Cached)
	s.InDelta(0.9, again.Extraction.Confidence, 1e-9)
}

func (s *OrchestratorSuite) TestStepsWithoutCalls() {
	o := s.newOrchestrator()

	upload := input(wfmodels.StepDocumentUpload, wfmodels.Criteria{})
	s.Equal(wfmodels.VerdictPass, o.Execute(s.ctx, upload).Verdict)
	upload.Missing = []string{"document:bank_statement"}
	s.Equal(wfmodels.VerdictFail, o.Execute(s.ctx, upload).Verdict)

	review := input(wfmodels.StepManualReview, wfmodels.Criteria{})
	s.Equal(wfmodels.VerdictNotApplicable, o.Execute(s.ctx, review).Verdict)
	review.ElevatedRisk = true
	s.Equal(wfmodels.VerdictNeedsReview, o.Execute(s.ctx, review).Verdict)

	noIDs := input(wfmodels.StepRegistryVerification, wfmodels.Criteria{})
	noIDs.Metadata = map[string]string{"country": "GB"}
	s.Equal(wfmodels.VerdictNotApplicable, o.Execute(s.ctx, noIDs).Verdict)
}
