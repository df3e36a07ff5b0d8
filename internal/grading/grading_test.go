package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestTotal(t *testing.T) {
	s := Scores{Test: f(20), Lab: f(15), Exam: f(40)}
	assert.Equal(t, 75.0, Total(s, true))
	assert.Equal(t, 60.0, Total(s, false))
	assert.Equal(t, 0.0, Total(Scores{}, true))
	assert.Equal(t, 30.0, Total(Scores{Test: f(math.NaN()), Exam: f(30)}, false))
	assert.Equal(t, 10.0, Total(Scores{Test: f(math.Inf(1)), Exam: f(10)}, false))
}

func TestGradeBands(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{100, GradeA}, {70, GradeA}, {69.99, GradeB}, {60, GradeB},
		{59.5, GradeC}, {50, GradeC}, {49, GradeD}, {45, GradeD},
		{44.5, GradeE}, {40, GradeE}, {39.99, GradeF}, {0, GradeF}, {-5, GradeF},
		{39, GradeF}, {44, GradeE}, {59, GradeC}, {69, GradeB},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Grade(tc.total, nil, false), "total %.2f", tc.total)
	}
}

func TestGradePracticalRequiresLab(t *testing.T) {
	assert.Equal(t, GradeF, Grade(85, nil, true))
	assert.Equal(t, GradeF, Grade(85, f(0), true))
	assert.Equal(t, GradeA, Grade(85, f(10), true))
	assert.Equal(t, GradeA, Grade(85, nil, false))
}

func TestEvaluate(t *testing.T) {
	out := Evaluate(Scores{Test: f(20), Exam: f(55)}, false)
	assert.Equal(t, Outcome{Total: 75, Grade: GradeA, Remark: RemarkPass}, out)

	out = Evaluate(Scores{Test: f(25), Exam: f(60)}, true)
	assert.Equal(t, Outcome{Total: 85, Grade: GradeF, Remark: RemarkFail}, out)

	out = Evaluate(Scores{Test: f(10), Lab: f(5), Exam: f(20)}, true)
	assert.Equal(t, Outcome{Total: 35, Grade: GradeF, Remark: RemarkFail}, out)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	s := Scores{Test: f(18.5), Lab: f(9), Exam: f(33)}
	assert.Equal(t, Evaluate(s, true), Evaluate(s, true))
}

func TestRemark(t *testing.T) {
	assert.Equal(t, RemarkFail, Remark("F"))
	assert.Equal(t, RemarkFail, Remark("f"))
	for _, g := range []string{"A", "B", "C", "D", "E"} {
		assert.Equal(t, RemarkPass, Remark(g))
	}
}

func TestGradePoints(t *testing.T) {
	assert.Equal(t, 15.0, GradePoints("A", 3))
	assert.Equal(t, 8.0, GradePoints("b", 2))
	assert.Equal(t, 3.0, GradePoints(" C ", 1))
	assert.Equal(t, 4.0, GradePoints("D", 2))
	assert.Equal(t, 4.0, GradePoints("E", 4))
	assert.Equal(t, 0.0, GradePoints("F", 3))
	assert.Equal(t, 0.0, GradePoints("Z", 3))
	assert.Equal(t, 0.0, GradePoints("", 3))
}

func TestIsPassing(t *testing.T) {
	assert.True(t, IsPassing("e"))
	assert.False(t, IsPassing("F"))
	assert.False(t, IsPassing("X"))
}

func TestGPA(t *testing.T) {
	assert.Equal(t, 0.0, GPA(0, 0))
	assert.Equal(t, 0.0, GPA(12, 0))
	assert.Equal(t, 4.0, GPA(24, 6))
	assert.Equal(t, 3.67, GPA(11, 3))
	assert.Equal(t, 4.33, GPA(13, 3))
}

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, 4.5, Round2(4.499999))
	assert.Equal(t, 0.0, Round2(math.NaN()))
}

func TestHonours(t *testing.T) {
	cases := []struct {
		gpa  float64
		want string
	}{
		{5.0, FirstClass}, {4.5, FirstClass},
		{4.49, SecondClassUpper}, {4.495, FirstClass}, {3.5, SecondClassUpper},
		{3.49, SecondClassLower}, {2.4, SecondClassLower},
		{2.39, ThirdClass}, {1.5, ThirdClass},
		{1.49, PassDegree}, {1.0, PassDegree},
		{0.99, FailDegree}, {0, FailDegree}, {5.01, FailDegree}, {-1, FailDegree},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Honours(tc.gpa), "gpa %.3f", tc.gpa)
	}
}
