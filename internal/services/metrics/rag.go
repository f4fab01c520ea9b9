package metrics

import "github.com/marwane019/board-report-generator/internal/models"

// Classify maps a KPI value to a RAG status. Boundary comparisons are
// inclusive on the better side: a value exactly on the green boundary is
// Green, exactly on the amber boundary is Amber.
func Classify(value float64, t models.Threshold) models.RAGStatus {
	switch t.Direction {
	case models.HigherIsBetter:
		if value >= t.Green {
			return models.StatusGreen
		}
		if value >= t.Amber {
			return models.StatusAmber
		}
		return models.StatusRed
	case models.LowerIsBetter:
		if value <= t.Green {
			return models.StatusGreen
		}
		if value <= t.Amber {
			return models.StatusAmber
		}
		return models.StatusRed
	default:
		return models.StatusUnknown
	}
}
