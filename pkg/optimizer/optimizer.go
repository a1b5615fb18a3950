package optimizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Priority classifies how urgently a requirement should be matched
type Priority string

const (
	PriorityDefault Priority = "Default"
	PriorityHigh    Priority = "High"
	PriorityNone    Priority = "None"
)

// Valid reports whether p is a known priority. The empty value is costed as Default.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityDefault, PriorityHigh, PriorityNone:
		return true
	}
	return false
}

// Cost weights applied when building the volunteer x requirement matrix.
const (
	loadWeight   = 2.0
	ratingWeight = 0.3
	highPriority = 3.0
)

// DefaultMaxCapacity is the number of requirements a volunteer may receive in one run
const DefaultMaxCapacity = 3

// DefaultMaxMatrixCells bounds volunteers*requirements for a single run
const DefaultMaxMatrixCells = 1_000_000

var (
	ErrNoVolunteers    = errors.New("at least one volunteer is required")
	ErrInvalidCapacity = errors.New("max capacity must be positive")
	ErrProblemTooLarge = errors.New("assignment problem exceeds size limit")
	ErrDuplicateID     = errors.New("duplicate identifier")
	ErrMissingID       = errors.New("identifier is required")
	ErrInvalidRating   = errors.New("rating must be a finite number")
	ErrInvalidPriority = errors.New("unknown priority")
)

// Volunteer is the optimizer's read-only view of a volunteer
type Volunteer struct {
	ID          string   `json:"id"`
	Rating      *float64 `json:"rating,omitempty"`
	CurrentLoad int      `json:"current_load"`
}

// Requirement is the optimizer's read-only view of an open requirement
type Requirement struct {
	ID       string   `json:"id"`
	Priority Priority `json:"priority"`
}

// Assignment maps a volunteer ID to the requirement IDs given to them, in assignment order
type Assignment map[string][]string

// Options tunes a single optimization run
type Options struct {
	MaxCapacity    int
	MaxMatrixCells int
}

// DefaultOptions returns the capacity and size guard used when the caller has no preference
func DefaultOptions() Options {
	return Options{
		MaxCapacity:    DefaultMaxCapacity,
		MaxMatrixCells: DefaultMaxMatrixCells,
	}
}

// Optimize assigns requirements to volunteers. It builds a normalized cost
// matrix that favours lightly loaded, well rated volunteers and high priority
// requirements, solves the min-cost matching, then backfills whatever is left
// onto the least loaded volunteers up to opts.MaxCapacity.
//
// The inputs are never modified.
func Optimize(requirements []Requirement, volunteers []Volunteer, opts Options) (Assignment, error) {
	if err := Validate(requirements, volunteers, opts); err != nil {
		return nil, err
	}

	assignment := make(Assignment, len(volunteers))
	loadCounter := make(map[string]int, len(volunteers))
	for _, v := range volunteers {
		assignment[v.ID] = []string{}
		loadCounter[v.ID] = 0
	}
	if len(requirements) == 0 {
		return assignment, nil
	}

	cost := buildCostMatrix(requirements, volunteers)
	normalize(cost)

	taken := make(map[string]bool, len(requirements))
	for _, p := range solve(cost) {
		vol := volunteers[p.row]
		req := requirements[p.col]
		if loadCounter[vol.ID] < opts.MaxCapacity {
			assignment[vol.ID] = append(assignment[vol.ID], req.ID)
			loadCounter[vol.ID]++
			taken[req.ID] = true
		}
	}

	for _, req := range requirements {
		if taken[req.ID] {
			continue
		}
		least := leastLoaded(volunteers, loadCounter)
		if loadCounter[least] >= opts.MaxCapacity {
			continue
		}
		assignment[least] = append(assignment[least], req.ID)
		loadCounter[least]++
		taken[req.ID] = true
	}

	return assignment, nil
}

// Validate reports the first input error Optimize would return for these arguments
func Validate(requirements []Requirement, volunteers []Volunteer, opts Options) error {
	if len(volunteers) == 0 {
		return ErrNoVolunteers
	}
	if opts.MaxCapacity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, opts.MaxCapacity)
	}
	if opts.MaxMatrixCells > 0 && len(volunteers)*len(requirements) > opts.MaxMatrixCells {
		return fmt.Errorf("%w: %d volunteers x %d requirements > %d",
			ErrProblemTooLarge, len(volunteers), len(requirements), opts.MaxMatrixCells)
	}

	seen := make(map[string]bool, len(volunteers))
	for i, v := range volunteers {
		if v.ID == "" {
			return fmt.Errorf("%w: volunteer at index %d", ErrMissingID, i)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: volunteer %q", ErrDuplicateID, v.ID)
		}
		seen[v.ID] = true
		if v.Rating != nil && (math.IsNaN(*v.Rating) || math.IsInf(*v.Rating, 0)) {
			return fmt.Errorf("%w: volunteer %q", ErrInvalidRating, v.ID)
		}
	}
	seen = make(map[string]bool, len(requirements))
	for i, r := range requirements {
		if r.ID == "" {
			return fmt.Errorf("%w: requirement at index %d", ErrMissingID, i)
		}
		if !r.Priority.Valid() {
			return fmt.Errorf("%w %q: requirement %q", ErrInvalidPriority, r.Priority, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: requirement %q", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// buildCostMatrix returns a volunteers x requirements matrix of raw costs
func buildCostMatrix(requirements []Requirement, volunteers []Volunteer) *mat.Dense {
	cost := mat.NewDense(len(volunteers), len(requirements), nil)
	for i, v := range volunteers {
		base := loadWeight * float64(v.CurrentLoad)
		if v.Rating != nil {
			base -= ratingWeight * *v.Rating
		}
		for j, r := range requirements {
			c := base
			if r.Priority == PriorityHigh {
				c -= highPriority
			}
			cost.Set(i, j, c)
		}
	}
	return cost
}

// normalize rescales cost in place to [0, 1]. A flat matrix becomes all zero.
func normalize(cost *mat.Dense) {
	data := cost.RawMatrix().Data
	lo, hi := floats.Min(data), floats.Max(data)
	if hi == lo {
		cost.Zero()
		return
	}
	floats.AddConst(-lo, data)
	floats.Scale(1/(hi-lo), data)
}

// leastLoaded returns the first volunteer (in input order) with the smallest counter
func leastLoaded(volunteers []Volunteer, loadCounter map[string]int) string {
	best := volunteers[0].ID
	for _, v := range volunteers[1:] {
		if loadCounter[v.ID] < loadCounter[best] {
			best = v.ID
		}
	}
	return best
}

// Unassigned returns the IDs of requirements absent from every list in a, in input order
func Unassigned(requirements []Requirement, a Assignment) []string {
	assigned := make(map[string]bool)
	for _, ids := range a {
		for _, id := range ids {
			assigned[id] = true
		}
	}
	var out []string
	for _, r := range requirements {
		if !assigned[r.ID] {
			out = append(out, r.ID)
		}
	}
	return out
}

// LoadsFromAssignments counts, for each volunteer ID, how many requirements
// currently reference it through currentVolunteerOf (requirement ID -> volunteer ID).
func LoadsFromAssignments(volunteerIDs []string, currentVolunteerOf map[string]string) map[string]int {
	loads := make(map[string]int, len(volunteerIDs))
	for _, id := range volunteerIDs {
		loads[id] = 0
	}
	for _, volID := range currentVolunteerOf {
		if _, ok := loads[volID]; ok {
			loads[volID]++
		}
	}
	return loads
}
