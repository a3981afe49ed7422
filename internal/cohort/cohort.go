// Package cohort flags students needing attention: grade-band predicates over
// records lacking feedback, and a no-grade sweep over chosen assignments.
package cohort

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ecala/gradesync/internal/domain"
)

// Case names one classification predicate.
type Case string

const (
	// Band cases select graded records without feedback, by closed grade band.
	CaseHighBandNoFeedback Case = "band_16_18_no_feedback"
	CaseMidBandNoFeedback  Case = "band_14_15_no_feedback"
	CaseLowBandNoFeedback  Case = "band_1_13_no_feedback"

	// CaseNoGradeOnAssignments selects records with no usable grade on an
	// explicit set of assignment names.
	CaseNoGradeOnAssignments Case = "no_grade_on_assignments"
)

var bands = map[Case]struct{ lo, hi float64 }{
	CaseHighBandNoFeedback: {16, 18},
	CaseMidBandNoFeedback:  {14, 15},
	CaseLowBandNoFeedback:  {1, 13},
}

// noGradeLiterals are raw grade strings that count as "no grade" even when a
// numeric parse would not reject them.
var noGradeLiterals = map[string]struct{}{
	"":     {},
	"-":    {},
	"nan":  {},
	"None": {},
}

// Classify filters records by the named case. Band cases ignore targets.
// CaseNoGradeOnAssignments restricts to the target assignment names first; an
// empty target set yields an empty result so a caller cannot accidentally
// sweep every assignment.
func Classify(records []domain.GradeFeedbackRecord, c Case, targets []string) ([]domain.GradeFeedbackRecord, error) {
	if band, ok := bands[c]; ok {
		return filter(records, func(r domain.GradeFeedbackRecord) bool {
			if r.HasFeedback {
				return false
			}
			g, err := strconv.ParseFloat(strings.TrimSpace(r.Grade), 64)
			if err != nil {
				return false
			}
			return g >= band.lo && g <= band.hi
		}), nil
	}

	if c == CaseNoGradeOnAssignments {
		if len(targets) == 0 {
			return []domain.GradeFeedbackRecord{}, nil
		}
		targetSet := make(map[string]struct{}, len(targets))
		for _, name := range targets {
			targetSet[name] = struct{}{}
		}
		return filter(records, func(r domain.GradeFeedbackRecord) bool {
			if _, ok := targetSet[r.AssignmentName]; !ok {
				return false
			}
			return isNoGrade(r.Grade)
		}), nil
	}

	return nil, fmt.Errorf("unknown cohort case: %q", c)
}

// Cases lists every supported case name.
func Cases() []Case {
	return []Case{
		CaseHighBandNoFeedback,
		CaseMidBandNoFeedback,
		CaseLowBandNoFeedback,
		CaseNoGradeOnAssignments,
	}
}

// isNoGrade reports whether a raw grade string carries no usable grade: it is
// one of the literal placeholders, fails to parse as a number, or parses to
// exactly zero.
func isNoGrade(grade string) bool {
	trimmed := strings.TrimSpace(grade)
	if _, ok := noGradeLiterals[trimmed]; ok {
		return true
	}
	g, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return true
	}
	return g == 0
}

// FeedbackPresence narrows records by whether feedback exists.
type FeedbackPresence string

const (
	FeedbackAny     FeedbackPresence = "any"
	FeedbackPresent FeedbackPresence = "present"
	FeedbackAbsent  FeedbackPresence = "absent"
)

// GradeOp compares the numeric grade against a reference value. Records whose
// grade does not parse are excluded by the comparison ops; GradeUngraded
// selects exactly those with no usable grade.
type GradeOp string

const (
	GradeAny      GradeOp = "any"
	GradeEquals   GradeOp = "equals"
	GradeGreater  GradeOp = "greater"
	GradeLess     GradeOp = "less"
	GradeUngraded GradeOp = "ungraded"
)

// Filter is an ad-hoc conjunction of a feedback predicate and a grade
// predicate, for exploratory narrowing outside the named cases.
type Filter struct {
	Feedback   FeedbackPresence
	GradeOp    GradeOp
	GradeValue float64
}

// Apply filters records by f. Zero-value predicate parts keep everything.
func Apply(records []domain.GradeFeedbackRecord, f Filter) []domain.GradeFeedbackRecord {
	return filter(records, func(r domain.GradeFeedbackRecord) bool {
		switch f.Feedback {
		case FeedbackPresent:
			if !r.HasFeedback {
				return false
			}
		case FeedbackAbsent:
			if r.HasFeedback {
				return false
			}
		}

		switch f.GradeOp {
		case GradeUngraded:
			return isNoGrade(r.Grade)
		case GradeEquals, GradeGreater, GradeLess:
			g, err := strconv.ParseFloat(strings.TrimSpace(r.Grade), 64)
			if err != nil {
				return false
			}
			switch f.GradeOp {
			case GradeEquals:
				return g == f.GradeValue
			case GradeGreater:
				return g > f.GradeValue
			default:
				return g < f.GradeValue
			}
		}
		return true
	})
}

func filter(records []domain.GradeFeedbackRecord, keep func(domain.GradeFeedbackRecord) bool) []domain.GradeFeedbackRecord {
	out := make([]domain.GradeFeedbackRecord, 0)
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
