package simulated

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/verification/adapters"
	"verity/internal/verification/adapters/contract"
)

func TestExtractorIsDeterministic(t *testing.T) {
	e := NewExtractor()
	req := adapters.DocumentRequest{DocumentType: "passport", FileRef: "s3://docs/p.jpg", ContentHash: "abc"}

	first, err := e.Extract(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, first.Tampered)
}

func TestMarkers(t *testing.T) {
	ctx := context.Background()

	doc, err := NewExtractor().Extract(ctx, adapters.DocumentRequest{FileRef: "tampered.jpg", ContentHash: "h"})
	require.NoError(t, err)
	assert.True(t, doc.Tampered)

	match, err := NewMatcher().Compare(ctx, adapters.BiometricRequest{SelfieRef: "spoof-selfie.jpg", SelfieHash: "a", DocumentHash: "b"})
	require.NoError(t, err)
	assert.True(t, match.SpoofDetected)

	reg := NewRegistry()
	invalid, err := reg.Verify(ctx, adapters.RegistryRequest{IdentifierType: adapters.IdentifierNationalID, IdentifierValue: "AB123000"})
	require.NoError(t, err)
	assert.False(t, invalid.IsValid)

	listed, err := reg.Verify(ctx, adapters.RegistryRequest{IdentifierType: adapters.IdentifierNationalID, IdentifierValue: "SANC12345"})
	require.NoError(t, err)
	assert.True(t, listed.Listed)
}

func TestLatencyHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewRegistry(WithLatency(time.Second)).Verify(ctx, adapters.RegistryRequest{IdentifierValue: "AB1234"})
	require.Error(t, err)
	assert.Equal(t, adapters.ErrorTimeout, adapters.CategoryOf(err))
	assert.True(t, adapters.IsRetryable(err))
}

func TestSimulatedAdaptersHonorContracts(t *testing.T) {
	(&contract.Suite{
		Extractor: NewExtractor(),
		Matcher:   NewMatcher(),
		Registry:  NewRegistry(),
		Detectors: []adapters.FraudDetector{NewBehavioralDetector(), NewHistoryDetector()},
	}).Run(t)
}
