package optimizer

import "math"

// Stats summarises an optimization run for callers and audit records
type Stats struct {
	Requested     int     `json:"requested"`
	Assigned      int     `json:"assigned"`
	Unassigned    int     `json:"unassigned"`
	Volunteers    int     `json:"volunteers"`
	FairnessScore float64 `json:"fairness_score"`
}

// Summarize computes run statistics for an assignment produced from requirements.
func Summarize(requirements []Requirement, a Assignment) Stats {
	assigned := 0
	for _, ids := range a {
		assigned += len(ids)
	}
	return Stats{
		Requested:     len(requirements),
		Assigned:      assigned,
		Unassigned:    len(requirements) - assigned,
		Volunteers:    len(a),
		FairnessScore: FairnessScore(a),
	}
}

// FairnessScore returns a percentage (0-100) representing how evenly
// requirements are spread. 100 means every volunteer received the same count.
func FairnessScore(a Assignment) float64 {
	if len(a) == 0 {
		return 100.0
	}

	var sum float64
	for _, ids := range a {
		sum += float64(len(ids))
	}
	if sum == 0 {
		return 100.0
	}

	mean := sum / float64(len(a))
	var varianceSum float64
	for _, ids := range a {
		diff := float64(len(ids)) - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(a)))

	// 0% once the deviation reaches the mean.
	score := (1.0 - stdDev/mean) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
