// Package readiness derives ready/not-ready verdicts for assets. All
// functions are pure; callers re-invoke them against current asset rows
// whenever an authoritative answer is needed, because summaries cached in a
// flow's phase results go stale as assets are enriched after the snapshot.
package readiness

import (
	"migration-assess/backend/pkg/models"
)

// Evaluate returns the readiness verdict for a single asset. An asset is
// ready when it has all required attribute values, or when an approved
// questionnaire response covers the required fields, or when the
// questionnaire outcome is "no applicable questions" — that terminal outcome
// maps to ready, not not_ready.
func Evaluate(asset *models.Asset) models.AssessmentReadiness {
	if asset.RequiredFieldsPresent {
		return models.ReadinessReady
	}

	switch asset.Questionnaire {
	case models.QuestionnaireApproved:
		return models.ReadinessReady
	case models.QuestionnaireNotApplicable:
		// No applicable questions means there is nothing left to answer.
		return models.ReadinessReady
	default:
		return models.ReadinessNotReady
	}
}

// EvaluateGroup returns aggregate readiness counts over a group of assets,
// computed from the rows passed in — never from a stored summary.
func EvaluateGroup(assets []*models.Asset) models.ReadinessSummary {
	var summary models.ReadinessSummary
	for _, a := range assets {
		if Evaluate(a) == models.ReadinessReady {
			summary.Ready++
		} else {
			summary.NotReady++
		}
	}
	return summary
}
