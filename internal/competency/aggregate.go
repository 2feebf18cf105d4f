package competency

import (
	"math"

	"gmao/internal/domain"
)

// FamilyRate is the acquisition summary of one family for one student.
type FamilyRate struct {
	Family     string `json:"family"`
	Title      string `json:"title"`
	Acquired   int    `json:"acquired"`
	Applicable int    `json:"applicable"`
	Rate       int    `json:"rate"`
}

// AcquisitionRate returns the rounded percentage of competences applicable to
// the student's level (restricted to family when non-empty) that the student
// has acquired. An empty applicable set yields 0.
func AcquisitionRate(s domain.Student, family string) int {
	acquired, applicable := counts(s, family)
	return rate(acquired, applicable)
}

// GlobalRate is AcquisitionRate over every family.
func GlobalRate(s domain.Student) int {
	return AcquisitionRate(s, "")
}

// FamilyRates returns one entry per family having at least one competence
// applicable to the student's level.
func FamilyRates(s domain.Student) []FamilyRate {
	var out []FamilyRate
	for _, f := range Families() {
		acquired, applicable := counts(s, f.Key)
		if applicable == 0 {
			continue
		}
		out = append(out, FamilyRate{
			Family:     f.Key,
			Title:      f.Title,
			Acquired:   acquired,
			Applicable: applicable,
			Rate:       rate(acquired, applicable),
		})
	}
	return out
}

// StatusOf returns the acquisition record for code. When a code was
// recorded more than once the last record wins.
func StatusOf(s domain.Student, code string) (domain.AcquiredCompetence, bool) {
	var (
		found domain.AcquiredCompetence
		ok    bool
	)
	for _, a := range s.Acquired {
		if a.Code == code {
			found, ok = a, true
		}
	}
	return found, ok
}

func counts(s domain.Student, family string) (acquired, applicable int) {
	have := make(map[string]bool, len(s.Acquired))
	for _, a := range s.Acquired {
		have[a.Code] = true
	}
	for _, c := range catalog {
		if !c.AppliesTo(s.TrainingLevel) {
			continue
		}
		if family != "" && c.Family != family {
			continue
		}
		applicable++
		if have[c.Code] {
			acquired++
		}
	}
	return acquired, applicable
}

func rate(acquired, applicable int) int {
	if applicable == 0 {
		return 0
	}
	return int(math.Round(100 * float64(acquired) / float64(applicable)))
}
