package verification

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(path string, body any, authed bool) error
	LastStatus() int
	ResponseField(path string) (any, error)
	Reference() string
	Payload() string
}

// RegisterSteps registers verification step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I verify the document by reference$`, steps.verifyByReference)
	ctx.Step(`^I verify the document by payload$`, steps.verifyByPayload)
	ctx.Step(`^I verify the reference "([^"]*)"$`, steps.verifyReference)
	ctx.Step(`^the verdict is "([^"]*)"$`, steps.verdictIs)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) verifyByReference() error {
	return s.tc.POST("/verify", map[string]string{"referenceNumber": s.tc.Reference()}, false)
}

func (s *verificationSteps) verifyByPayload() error {
	return s.tc.POST("/verify", map[string]string{"payload": s.tc.Payload()}, false)
}

func (s *verificationSteps) verifyReference(reference string) error {
	return s.tc.POST("/verify", map[string]string{"referenceNumber": reference}, false)
}

func (s *verificationSteps) verdictIs(expected string) error {
	if s.tc.LastStatus() != 200 {
		return fmt.Errorf("expected status 200, got %d", s.tc.LastStatus())
	}
	verdict, err := s.tc.ResponseField("verdict")
	if err != nil {
		return err
	}
	if verdict != expected {
		return fmt.Errorf("expected verdict %q, got %v", expected, verdict)
	}
	return nil
}
