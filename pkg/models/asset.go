package models

import "time"

// AssessmentReadiness is the derived ready/not-ready verdict on an asset.
type AssessmentReadiness string

const (
	ReadinessReady    AssessmentReadiness = "ready"
	ReadinessNotReady AssessmentReadiness = "not_ready"
)

// QuestionnaireState describes where an asset's questionnaire stands.
type QuestionnaireState string

const (
	QuestionnaireNone          QuestionnaireState = "none"
	QuestionnairePending       QuestionnaireState = "pending"
	QuestionnaireApproved      QuestionnaireState = "approved"
	QuestionnaireNotApplicable QuestionnaireState = "not_applicable"
)

// Asset is an infrastructure inventory entity. The orchestration core only
// reads assets; readiness fields are written by collaborating subsystems
// (import, questionnaire, enrichment).
type Asset struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenant_id"`
	EngagementID string              `json:"engagement_id"`
	Name         string              `json:"name"`
	Kind         *string             `json:"kind,omitempty"`
	Environment  *string             `json:"environment,omitempty"`
	Readiness    AssessmentReadiness `json:"assessment_readiness"`

	// ReadinessScore is nil when no score has been computed. A value of 0.0
	// means "computed, value zero" and must never collapse to nil.
	ReadinessScore *float64 `json:"assessment_readiness_score,omitempty"`

	RequiredFieldsPresent bool               `json:"required_fields_present"`
	Questionnaire         QuestionnaireState `json:"questionnaire_state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
