package e2e

import (
	"github.com/cucumber/godog"

	"verity/e2e/steps/application"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	registerCommonSteps(ctx, tc)

	// Application lifecycle, documents and operator review
	application.RegisterSteps(ctx, tc)
}
