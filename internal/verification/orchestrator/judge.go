package orchestrator

import (
	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
)

// Judge folds settled call results into a verdict under the step's criteria.
// Failure beats review, which beats pass. Unresolved calls only fail the step
// when the criteria demand resolved answers; otherwise they send it to review.
func Judge(criteria wfmodels.Criteria, results []models.CallResult) models.StepOutcome {
	out := models.StepOutcome{Results: results}
	var failed, review bool

	for _, r := range results {
		switch r.Status {
		case models.CallError:
			failed = true
			out.Reasons = append(out.Reasons, "adapter_error:"+r.Subject)
			continue
		case models.CallUnresolved:
			if criteria.RequireResolved {
				failed = true
				out.Reasons = append(out.Reasons, "unresolved:"+r.Subject)
			} else {
				review = true
				out.Reasons = append(out.Reasons, "unresolved_permitted:"+r.Subject)
			}
			continue
		}

		reasons, needsReview := judgeResolved(criteria, r)
		if len(reasons) > 0 {
			failed = true
			out.Reasons = append(out.Reasons, reasons...)
		}
		if needsReview {
			review = true
			out.Reasons = append(out.Reasons, "listed:"+r.Subject)
		}
	}

	switch {
	case failed:
		out.Verdict = wfmodels.VerdictFail
	case review:
		out.Verdict = wfmodels.VerdictNeedsReview
	default:
		out.Verdict = wfmodels.VerdictPass
	}
	return out
}

func judgeResolved(criteria wfmodels.Criteria, r models.CallResult) (reasons []string, review bool) {
	below := func(signal string, v float64) {
		if v < criteria.Min(signal) {
			reasons = append(reasons, "below_threshold:"+signal+":"+r.Subject)
		}
	}
	switch {
	case r.Extraction != nil:
		e := r.Extraction
		if e.Tampered {
			reasons = append(reasons, "document_tampered:"+r.Subject)
		}
		below("extraction", e.Confidence)
		below("authenticity", e.AuthenticityScore)
	case r.Biometric != nil:
		b := r.Biometric
		if b.SpoofDetected {
			reasons = append(reasons, "biometric_spoof:"+r.Subject)
		}
		if !b.IsMatch {
			reasons = append(reasons, "biometric_mismatch:"+r.Subject)
		}
		below("similarity", b.Similarity)
		below("liveness", b.LivenessScore)
	case r.Registry != nil:
		c := r.Registry
		if !c.IsValid {
			reasons = append(reasons, "registry_invalid:"+r.Subject)
		}
		below("registry", c.Confidence)
		review = c.Listed
	}
	return reasons, review
}
