// Package grading holds the pure scoring rules: total, letter grade, remark,
// grade points, GPA rounding and honours classification.
package grading

import (
	"math"
	"strconv"
	"strings"
)

// Letter grades.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeE = "E"
	GradeF = "F"
)

// Remarks.
const (
	RemarkPass = "PASS"
	RemarkFail = "FAIL"
)

// PassMark is the lowest total that can earn a non-failing grade.
const PassMark = 40.0

// Scores carries the raw component scores of one course entry. Nil means absent.
type Scores struct {
	Test *float64
	Lab  *float64
	Exam *float64
}

// Outcome is the derived result of grading one entry.
type Outcome struct {
	Total  float64
	Grade  string
	Remark string
}

var gradePoints = map[string]float64{
	GradeA: 5,
	GradeB: 4,
	GradeC: 3,
	GradeD: 2,
	GradeE: 1,
	GradeF: 0,
}

// Evaluate grades one entry for a course.
func Evaluate(s Scores, hasPractical bool) Outcome {
	total := Total(s, hasPractical)
	grade := Grade(total, s.Lab, hasPractical)
	return Outcome{Total: total, Grade: grade, Remark: Remark(grade)}
}

// Total sums the components; the lab score only counts for practical courses.
func Total(s Scores, hasPractical bool) float64 {
	total := value(s.Test) + value(s.Exam)
	if hasPractical {
		total += value(s.Lab)
	}
	return total
}

// Grade maps a total to a letter. A practical course with no lab score fails
// regardless of the total.
func Grade(total float64, lab *float64, hasPractical bool) string {
	if total < PassMark || (hasPractical && value(lab) == 0) {
		return GradeF
	}
	switch {
	case total >= 70:
		return GradeA
	case total >= 60:
		return GradeB
	case total >= 50:
		return GradeC
	case total >= 45:
		return GradeD
	default:
		return GradeE
	}
}

// Remark is FAIL for an F and PASS otherwise.
func Remark(grade string) string {
	if strings.EqualFold(grade, GradeF) {
		return RemarkFail
	}
	return RemarkPass
}

// GradePoints returns points(grade) * unit. Unknown grades earn nothing.
func GradePoints(grade string, unit int) float64 {
	return gradePoints[strings.ToUpper(strings.TrimSpace(grade))] * float64(unit)
}

// IsPassing reports whether grade is a known non-failing grade.
func IsPassing(grade string) bool {
	g := strings.ToUpper(strings.TrimSpace(grade))
	_, known := gradePoints[g]
	return known && g != GradeF
}

// GPA returns tgp/tnu rounded to two decimals, or 0 when no units were taken.
func GPA(tgp, tnu float64) float64 {
	if tnu == 0 {
		return 0
	}
	return Round2(tgp / tnu)
}

// Round2 rounds half away from zero at two decimals. The value is first
// normalised through its shortest decimal form so 1.005 rounds to 1.01.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	shifted, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', -1, 64)+"e2", 64)
	if err != nil {
		shifted = v * 100
	}
	return math.Round(shifted) / 100
}

// Honours classes.
const (
	FirstClass       = "FIRST CLASS HONOURS"
	SecondClassUpper = "SECOND CLASS HONOURS (UPPER DIVISION)"
	SecondClassLower = "SECOND CLASS HONOURS (LOWER DIVISION)"
	ThirdClass       = "THIRD CLASS HONOURS"
	PassDegree       = "PASS"
	FailDegree       = "FAIL"
)

// Honours classifies a cumulative GPA on the five point scale. Bands are
// evaluated on the two-decimal rounded value; out-of-range values fail.
func Honours(cgpa float64) string {
	g := Round2(cgpa)
	switch {
	case g > 5.0:
		return FailDegree
	case g >= 4.5:
		return FirstClass
	case g >= 3.5:
		return SecondClassUpper
	case g >= 2.4:
		return SecondClassLower
	case g >= 1.5:
		return ThirdClass
	case g >= 1.0:
		return PassDegree
	default:
		return FailDegree
	}
}

func value(p *float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0
	}
	return *p
}
