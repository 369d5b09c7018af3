package orchestrator

import (
	"context"
	"maps"
	"slices"
	"strconv"

	"verity/internal/verification/adapters"
	"verity/internal/verification/cache"
	"verity/internal/verification/models"
	id "verity/pkg/domain"
)

// Identifiers checked against the registry, in call order.
var registryIdentifiers = []string{
	adapters.IdentifierNationalID,
	adapters.IdentifierRegistrationNumber,
	adapters.IdentifierTaxID,
}

func (o *Orchestrator) documentCall(doc models.DocumentRef) call {
	extractorID := o.adapters.Extractor.ID()
	return call{
		key:         models.DocumentKey(doc.ID),
		kind:        adapters.KindDocument,
		adapterID:   extractorID,
		subject:     doc.ID.String(),
		fingerprint: cache.Fingerprint(adapters.KindDocument, extractorID, string(doc.Type), doc.ContentHash),
		ttl:         o.ttl.Document,
	}
}

func (o *Orchestrator) extractTask(doc models.DocumentRef, hints map[string]string) task {
	c := o.documentCall(doc)
	req := adapters.DocumentRequest{
		DocumentType: string(doc.Type),
		FileRef:      doc.FileRef,
		ContentHash:  doc.ContentHash,
		Hints:        hints,
	}
	return func(ctx context.Context) models.CallResult {
		res, v := invoke(ctx, o, c, func(ctx context.Context) (*adapters.Extraction, error) {
			return o.adapters.Extractor.Extract(ctx, req)
		})
		res.Extraction = v
		return res
	}
}

func (o *Orchestrator) documentTasks(in models.StepInput) []task {
	var tasks []task
	for _, doc := range in.Documents {
		if doc.Type == id.DocumentPhoto {
			continue
		}
		tasks = append(tasks, o.extractTask(doc, in.Metadata))
	}
	return tasks
}

// biometricTasks pairs every photo with every identity document. Biometric
// results are never cached.
func (o *Orchestrator) biometricTasks(in models.StepInput) []task {
	var photos, identity []models.DocumentRef
	for _, doc := range in.Documents {
		switch {
		case doc.Type == id.DocumentPhoto:
			photos = append(photos, doc)
		case doc.Type.IsIdentityDocument():
			identity = append(identity, doc)
		}
	}

	matcherID := o.adapters.Matcher.ID()
	var tasks []task
	for _, photo := range photos {
		for _, doc := range identity {
			c := call{
				key:       models.BiometricKey(photo.ID, doc.ID),
				kind:      adapters.KindBiometric,
				adapterID: matcherID,
				subject:   photo.ID.String() + "/" + doc.ID.String(),
			}
			req := adapters.BiometricRequest{
				SelfieRef:    photo.FileRef,
				SelfieHash:   photo.ContentHash,
				DocumentRef:  doc.FileRef,
				DocumentHash: doc.ContentHash,
			}
			tasks = append(tasks, func(ctx context.Context) models.CallResult {
				res, v := invoke(ctx, o, c, func(ctx context.Context) (*adapters.BiometricMatch, error) {
					return o.adapters.Matcher.Compare(ctx, req)
				})
				res.Biometric = v
				return res
			})
		}
	}
	return tasks
}

func (o *Orchestrator) registryTasks(in models.StepInput) []task {
	registryID := o.adapters.Registry.ID()
	country := in.Metadata["country"]
	nameContext := map[string]string{}
	for _, k := range []string{"full_name", "legal_name", "date_of_birth"} {
		if v := in.Metadata[k]; v != "" {
			nameContext[k] = v
		}
	}

	var tasks []task
	for _, idType := range registryIdentifiers {
		value := in.Metadata[idType]
		if value == "" {
			continue
		}
		c := call{
			key:         models.RegistryKey(idType),
			kind:        adapters.KindRegistry,
			adapterID:   registryID,
			subject:     idType,
			fingerprint: cache.Fingerprint(adapters.KindRegistry, registryID, idType, value, country),
			ttl:         o.ttl.Registry,
		}
		req := adapters.RegistryRequest{
			IdentifierType:  idType,
			IdentifierValue: value,
			Country:         country,
			Context:         nameContext,
		}
		tasks = append(tasks, func(ctx context.Context) models.CallResult {
			res, v := invoke(ctx, o, c, func(ctx context.Context) (*adapters.RegistryCheck, error) {
				return o.adapters.Registry.Verify(ctx, req)
			})
			res.Registry = v
			return res
		})
	}
	return tasks
}

func (o *Orchestrator) fraudTasks(in models.StepInput) []task {
	req := adapters.FraudRequest{
		ApplicationID:   in.ApplicationID.String(),
		ApplicantID:     in.ApplicantID.String(),
		ApplicationType: string(in.ApplicationType),
		Metadata:        in.Metadata,
		ClientIP:        in.ClientIP,
		UserAgent:       in.UserAgent,
		Submissions:     in.Submissions,
	}
	profile := profileParts(req)

	tasks := make([]task, 0, len(o.adapters.FraudDetectors))
	for _, d := range o.adapters.FraudDetectors {
		c := call{
			key:         models.FraudKey(d.ID()),
			kind:        adapters.KindFraud,
			adapterID:   d.ID(),
			subject:     d.ID(),
			fingerprint: cache.Fingerprint(adapters.KindFraud, append([]string{d.ID()}, profile...)...),
			ttl:         o.ttl.Fraud,
		}
		tasks = append(tasks, func(ctx context.Context) models.CallResult {
			res, v := invoke(ctx, o, c, func(ctx context.Context) (*adapters.FraudSignal, error) {
				return d.Detect(ctx, req)
			})
			if v != nil && v.Detector == "" {
				v.Detector = d.ID()
			}
			res.Fraud = v
			return res
		})
	}
	return tasks
}

// profileParts flattens a fraud request into stable fingerprint parts.
func profileParts(req adapters.FraudRequest) []string {
	parts := []string{req.ApplicationID, req.ApplicantID, req.ApplicationType, req.ClientIP, req.UserAgent, strconv.Itoa(req.Submissions)}
	for _, k := range slices.Sorted(maps.Keys(req.Metadata)) {
		parts = append(parts, k, req.Metadata[k])
	}
	return parts
}

// Reextract drops the document's cached extraction and runs it again.
func (o *Orchestrator) Reextract(ctx context.Context, doc models.DocumentRef, hints map[string]string) models.CallResult {
	ctx, span := o.tracer.Start(ctx, "document.reextract")
	defer span.End()

	c := o.documentCall(doc)
	if err := o.cache.Delete(ctx, c.fingerprint); err != nil {
		o.logger.WarnContext(ctx, "result cache invalidation failed", "key", c.fingerprint, "error", err)
	}
	return o.extractTask(doc, hints)(ctx)
}
