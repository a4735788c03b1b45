package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"migration-assess/backend/pkg/models"
)

func TestEvaluate(t *testing.T) {
	t.Run("required fields present", func(t *testing.T) {
		asset := &models.Asset{RequiredFieldsPresent: true, Questionnaire: models.QuestionnaireNone}
		assert.Equal(t, models.ReadinessReady, Evaluate(asset))
	})

	t.Run("approved questionnaire", func(t *testing.T) {
		asset := &models.Asset{Questionnaire: models.QuestionnaireApproved}
		assert.Equal(t, models.ReadinessReady, Evaluate(asset))
	})

	t.Run("no applicable questions maps to ready", func(t *testing.T) {
		asset := &models.Asset{Questionnaire: models.QuestionnaireNotApplicable}
		assert.Equal(t, models.ReadinessReady, Evaluate(asset))
	})

	t.Run("pending questionnaire is not ready", func(t *testing.T) {
		asset := &models.Asset{Questionnaire: models.QuestionnairePending}
		assert.Equal(t, models.ReadinessNotReady, Evaluate(asset))
	})

	t.Run("nothing present is not ready", func(t *testing.T) {
		asset := &models.Asset{Questionnaire: models.QuestionnaireNone}
		assert.Equal(t, models.ReadinessNotReady, Evaluate(asset))
	})
}

func TestEvaluateZeroScoreIsComputed(t *testing.T) {
	// A readiness score of exactly 0.0 is a computed value. It must survive
	// as a non-nil zero, never collapse to "no score".
	zero := 0.0
	asset := &models.Asset{
		RequiredFieldsPresent: true,
		ReadinessScore:        &zero,
	}

	assert.Equal(t, models.ReadinessReady, Evaluate(asset))
	if assert.NotNil(t, asset.ReadinessScore) {
		assert.Equal(t, 0.0, *asset.ReadinessScore)
	}
}

func TestEvaluateGroup(t *testing.T) {
	assets := make([]*models.Asset, 0, 10)
	for i := 0; i < 7; i++ {
		assets = append(assets, &models.Asset{RequiredFieldsPresent: true})
	}
	for i := 0; i < 3; i++ {
		assets = append(assets, &models.Asset{Questionnaire: models.QuestionnairePending})
	}

	summary := EvaluateGroup(assets)
	assert.Equal(t, models.ReadinessSummary{Ready: 7, NotReady: 3}, summary)

	// One asset transitions; a recompute over the same rows reflects it
	// without any flow state involved.
	assets[7].Questionnaire = models.QuestionnaireApproved
	summary = EvaluateGroup(assets)
	assert.Equal(t, models.ReadinessSummary{Ready: 8, NotReady: 2}, summary)
}

func TestEvaluateGroupEmpty(t *testing.T) {
	summary := EvaluateGroup(nil)
	assert.Equal(t, models.ReadinessSummary{}, summary)
}
