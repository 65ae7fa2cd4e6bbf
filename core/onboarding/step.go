package onboarding

import (
	"strings"

	"github.com/pkg/errors"
)

type Step string

const (
	StepPersonalInfo    Step = "PERSONAL_INFO"
	StepRoleExperience  Step = "ROLE_EXPERIENCE"
	StepSchoolSetup     Step = "SCHOOL_SETUP"
	StepSchoolName      Step = "SCHOOL_NAME"
	StepSchoolFocus     Step = "SCHOOL_FOCUS"
	StepStudentPlanning Step = "STUDENT_PLANNING"
	StepStudents        Step = "STUDENTS"
	StepAgreements      Step = "AGREEMENTS"
	StepFinalize        Step = "FINALIZE"
	StepComplete        Step = "COMPLETE"
)

var ErrUnknownStep = errors.New("unknown onboarding step")

// steps is the ordered step table; every transition is derived from it.
var steps = []Step{
	StepPersonalInfo,
	StepRoleExperience,
	StepSchoolSetup,
	StepSchoolName,
	StepSchoolFocus,
	StepStudentPlanning,
	StepStudents,
	StepAgreements,
	StepFinalize,
	StepComplete,
}

// Steps returns the steps in order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Index returns the position of the step, or -1 for an unknown step.
func (s Step) Index() int {
	for i, st := range steps {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Step) IsValid() bool { return s.Index() >= 0 }

func (s Step) IsTerminal() bool { return s == StepComplete }

// Next returns the step following `s`. COMPLETE is its own successor and an unknown step
// has none.
func (s Step) Next() Step {
	idx := s.Index()
	switch {
	case idx < 0:
		return ""
	case idx == len(steps)-1:
		return s
	default:
		return steps[idx+1]
	}
}

// Before reports whether `s` comes before `other`.
func (s Step) Before(other Step) bool {
	return s.Index() < other.Index()
}

// ParseStep accepts "SCHOOL_NAME", "school_name" and "school-name".
func ParseStep(str string) (Step, error) {
	s := Step(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(str), "-", "_")))
	if !s.IsValid() {
		return "", errors.Wrap(ErrUnknownStep, str)
	}
	return s, nil
}
