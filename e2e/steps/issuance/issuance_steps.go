package issuance

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(path string, body any, authed bool) error
	GET(path string, authed bool) error
	LastStatus() int
	ResponseField(path string) (any, error)
	SetReference(ref string)
	Reference() string
	SetPayload(p string)
}

// RegisterSteps registers issuance and revocation step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &issuanceSteps{tc: tc}

	ctx.Step(`^I issue a "([^"]*)" for holder "([^"]*)" born "([^"]*)"$`, steps.issueDocument)
	ctx.Step(`^the document is created with an active status$`, steps.documentIsActive)
	ctx.Step(`^I save the document reference and payload$`, steps.saveReferenceAndPayload)
	ctx.Step(`^I fetch the issued document$`, steps.fetchDocument)
	ctx.Step(`^I revoke the document with reason "([^"]*)"$`, steps.revokeDocument)
	ctx.Step(`^revoking the document again fails with a conflict$`, steps.revokeAgainConflicts)
}

type issuanceSteps struct {
	tc TestContext
}

func (s *issuanceSteps) issueDocument(docType, holderName, dateOfBirth string) error {
	return s.tc.POST("/documents", map[string]any{
		"documentType": docType,
		"holderFields": []map[string]string{
			{"name": "childFullName", "value": holderName},
			{"name": "dateOfBirth", "value": dateOfBirth},
		},
	}, true)
}

func (s *issuanceSteps) documentIsActive() error {
	if s.tc.LastStatus() != 201 {
		return fmt.Errorf("expected status 201, got %d", s.tc.LastStatus())
	}
	status, err := s.tc.ResponseField("document.status")
	if err != nil {
		return err
	}
	if status != "active" {
		return fmt.Errorf("expected active status, got %v", status)
	}
	return nil
}

func (s *issuanceSteps) saveReferenceAndPayload() error {
	ref, err := s.tc.ResponseField("document.referenceNumber")
	if err != nil {
		return err
	}
	payload, err := s.tc.ResponseField("document.verificationPayload")
	if err != nil {
		return err
	}
	s.tc.SetReference(fmt.Sprint(ref))
	s.tc.SetPayload(fmt.Sprint(payload))
	return nil
}

func (s *issuanceSteps) fetchDocument() error {
	return s.tc.GET("/documents/"+s.tc.Reference(), true)
}

func (s *issuanceSteps) revokeDocument(reason string) error {
	if err := s.tc.POST("/documents/"+s.tc.Reference()+"/revoke", map[string]string{"reason": reason}, true); err != nil {
		return err
	}
	if s.tc.LastStatus() != 200 {
		return fmt.Errorf("expected status 200, got %d", s.tc.LastStatus())
	}
	return nil
}

func (s *issuanceSteps) revokeAgainConflicts() error {
	if err := s.tc.POST("/documents/"+s.tc.Reference()+"/revoke", map[string]string{"reason": "again"}, true); err != nil {
		return err
	}
	if s.tc.LastStatus() != 409 {
		return fmt.Errorf("expected status 409, got %d", s.tc.LastStatus())
	}
	return nil
}
