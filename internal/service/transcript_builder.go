package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/result-portal-api/internal/grading"
	"github.com/noah-isme/result-portal-api/internal/models"
)

// BuildTranscript groups a student's slates by session, orders the groups by
// level and carries the running totals forward so each group knows the
// cumulative TNU and TGP that preceded it.
func BuildTranscript(studentID string, slates []models.ApprovedResult) models.Transcript {
	transcript := models.Transcript{StudentID: studentID, Groups: []models.TranscriptGroup{}}

	index := make(map[string]int)
	for _, slate := range slates {
		if len(slate.Courses) > 0 {
			slate.Recompute()
		}
		i, ok := index[slate.Session]
		if !ok {
			i = len(transcript.Groups)
			index[slate.Session] = i
			transcript.Groups = append(transcript.Groups, models.TranscriptGroup{
				Session: slate.Session,
				Level:   slate.Level,
			})
		}
		group := &transcript.Groups[i]
		group.TNU += slate.TotalUnits
		group.TGP += slate.TotalGradePoints
		group.Results = append(group.Results, slate)
	}

	sort.SliceStable(transcript.Groups, func(i, j int) bool {
		return transcript.Groups[i].Level < transcript.Groups[j].Level
	})

	prevTNU, prevTGP := 0, 0.0
	for i := range transcript.Groups {
		group := &transcript.Groups[i]
		group.GPA = grading.GPA(group.TGP, float64(group.TNU))
		group.PrevTNU = prevTNU
		group.PrevTGP = prevTGP
		prevTNU += group.TNU
		prevTGP += group.TGP
		group.CGPA = grading.GPA(prevTGP, float64(prevTNU))
	}

	transcript.TNU = prevTNU
	transcript.TGP = prevTGP
	transcript.CGPA = grading.GPA(prevTGP, float64(prevTNU))
	return transcript
}

// OutstandingCourses lists failed courses that were not passed afterwards,
// walking the transcript in order.
func OutstandingCourses(transcript models.Transcript) []models.OutstandingCourse {
	var order []string
	pending := make(map[string]models.OutstandingCourse)
	for _, group := range transcript.Groups {
		for _, slate := range group.Results {
			for _, course := range slate.Courses {
				code := strings.ToUpper(course.Code)
				if grading.IsPassing(course.Grade) {
					delete(pending, code)
					continue
				}
				if _, seen := pending[code]; !seen {
					order = append(order, code)
				}
				pending[code] = models.OutstandingCourse{
					Code:     course.Code,
					Title:    course.Title,
					Unit:     course.Unit,
					Level:    slate.Level,
					Session:  slate.Session,
					Semester: slate.Semester,
				}
			}
		}
	}

	outstanding := make([]models.OutstandingCourse, 0, len(pending))
	emitted := make(map[string]bool, len(pending))
	for _, code := range order {
		course, ok := pending[code]
		if !ok || emitted[code] {
			continue
		}
		emitted[code] = true
		outstanding = append(outstanding, course)
	}
	return outstanding
}

// RankStudents totals each student's slates and ranks them by CGPA. Equal
// CGPAs share a rank and the next distinct CGPA skips ahead.
func RankStudents(slates []models.ApprovedResult) []models.ClassStanding {
	index := make(map[string]int)
	var standings []models.ClassStanding
	for _, slate := range slates {
		i, ok := index[slate.StudentID]
		if !ok {
			i = len(standings)
			index[slate.StudentID] = i
			standings = append(standings, models.ClassStanding{
				StudentID: slate.StudentID,
				Name:      slate.Name,
				RegNumber: slate.RegNumber,
			})
		}
		standings[i].TNU += slate.TotalUnits
		standings[i].TGP += slate.TotalGradePoints
	}
	for i := range standings {
		standings[i].CGPA = grading.GPA(standings[i].TGP, float64(standings[i].TNU))
		standings[i].Honours = grading.Honours(standings[i].CGPA)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].CGPA != standings[j].CGPA {
			return standings[i].CGPA > standings[j].CGPA
		}
		return strings.ToLower(standings[i].Name) < strings.ToLower(standings[j].Name)
	})
	for i := range standings {
		if i > 0 && standings[i].CGPA == standings[i-1].CGPA {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
	if standings == nil {
		standings = []models.ClassStanding{}
	}
	return standings
}

// BuildBroadsheet lays out a class's slates for one period as rows, with the
// union of courses taken as columns. prior holds the class's slates from
// earlier periods; they only contribute totals.
func BuildBroadsheet(classID, session, semester string, level int, current, prior []models.ApprovedResult) models.Broadsheet {
	sheet := models.Broadsheet{
		ClassID:           classID,
		Session:           session,
		Semester:          semester,
		Level:             level,
		PreviousAvailable: len(prior) > 0,
		Courses:           []models.BroadsheetCourse{},
		Rows:              make([]models.BroadsheetRow, 0, len(current)),
	}

	type totals struct {
		units  int
		points float64
	}
	previous := make(map[string]totals)
	for _, slate := range prior {
		t := previous[slate.StudentID]
		t.units += slate.TotalUnits
		t.points += slate.TotalGradePoints
		previous[slate.StudentID] = t
	}

	seen := make(map[models.BroadsheetCourse]bool)
	for _, slate := range current {
		if len(slate.Courses) > 0 {
			slate.Recompute()
		}
		for _, course := range slate.Courses {
			col := models.BroadsheetCourse{Code: strings.ToUpper(course.Code), Unit: course.Unit}
			if !seen[col] {
				seen[col] = true
				sheet.Courses = append(sheet.Courses, col)
			}
		}

		prev := previous[slate.StudentID]
		row := models.BroadsheetRow{
			Result:  slate,
			PrevTNU: prev.units,
			PrevTGP: prev.points,
			PrevGPA: grading.GPA(prev.points, float64(prev.units)),
			CumTNU:  prev.units + slate.TotalUnits,
			CumTGP:  prev.points + slate.TotalGradePoints,
		}
		row.CumGPA = grading.GPA(row.CumTGP, float64(row.CumTNU))
		sheet.Rows = append(sheet.Rows, row)
	}

	sort.SliceStable(sheet.Courses, func(i, j int) bool {
		if sheet.Courses[i].Code != sheet.Courses[j].Code {
			return sheet.Courses[i].Code < sheet.Courses[j].Code
		}
		return sheet.Courses[i].Unit < sheet.Courses[j].Unit
	})
	sort.SliceStable(sheet.Rows, func(i, j int) bool {
		return strings.ToLower(sheet.Rows[i].Result.Name) < strings.ToLower(sheet.Rows[j].Result.Name)
	})
	return sheet
}
