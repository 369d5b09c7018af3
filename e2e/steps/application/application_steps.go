package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PATCH(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	Save(name, field string) error
	Expand(s string) string
	ApplicantID() string
}

// RegisterSteps registers application lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &applicationSteps{tc: tc}

	ctx.Step(`^I create an? "([^"]*)" application with:$`, steps.createApplication)
	ctx.Step(`^I upload a "([^"]*)" document "([^"]*)"$`, steps.uploadDocument)
	ctx.Step(`^I submit the application$`, steps.submit)
	ctx.Step(`^I cancel the application because "([^"]*)"$`, steps.cancel)
	ctx.Step(`^I (approve|reject) the application with reason "([^"]*)"$`, steps.decide)
	ctx.Step(`^the missing items should be "([^"]*)"$`, steps.missingItems)
	ctx.Step(`^the application should belong to me$`, steps.ownedByMe)
}

type applicationSteps struct {
	tc TestContext
}

func (s *applicationSteps) createApplication(ctx context.Context, appType string, table *godog.Table) error {
	metadata := map[string]string{}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("metadata rows need a key and a value")
		}
		metadata[row.Cells[0].Value] = row.Cells[1].Value
	}
	if err := s.tc.POST("/applications", map[string]any{"type": appType, "metadata": metadata}); err != nil {
		return err
	}
	return s.tc.Save("application_id", "id")
}

func (s *applicationSteps) uploadDocument(ctx context.Context, docType, fileRef string) error {
	return s.tc.POST("/applications/{application_id}/documents", map[string]string{
		"type":         docType,
		"file_ref":     fileRef,
		"content_hash": "sha256:" + fileRef,
	})
}

func (s *applicationSteps) submit(ctx context.Context) error {
	return s.tc.POST("/applications/{application_id}/submit", nil)
}

func (s *applicationSteps) cancel(ctx context.Context, reason string) error {
	return s.tc.POST("/applications/{application_id}/cancel", map[string]string{"reason": reason})
}

func (s *applicationSteps) decide(ctx context.Context, decision, reason string) error {
	return s.tc.POST("/applications/{application_id}/review", map[string]string{
		"decision": decision,
		"reason":   reason,
	})
}

func (s *applicationSteps) missingItems(ctx context.Context, want string) error {
	v, err := s.tc.GetResponseField("missing")
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("missing is not a list: %v", v)
	}
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, fmt.Sprint(item))
	}
	if joined := strings.Join(got, ","); joined != want {
		return fmt.Errorf("expected missing %q, got %q", want, joined)
	}
	return nil
}

func (s *applicationSteps) ownedByMe(ctx context.Context) error {
	v, err := s.tc.GetResponseField("applicant_id")
	if err != nil {
		return err
	}
	if v != s.tc.ApplicantID() {
		return fmt.Errorf("application belongs to %v, not %s", v, s.tc.ApplicantID())
	}
	return nil
}
