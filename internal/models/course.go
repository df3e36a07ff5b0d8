package models

// Course is a catalog entry. Unit is always positive.
type Course struct {
	Code         string `db:"code" json:"code"`
	Title        string `db:"title" json:"title"`
	Unit         int    `db:"unit" json:"unit"`
	Level        int    `db:"level" json:"level"`
	HasPractical bool   `db:"has_practical" json:"has_practical"`
	IsElective   bool   `db:"is_elective" json:"is_elective"`
}

// Registration is one student on a course roster.
type Registration struct {
	StudentID      string `db:"student_id" json:"student_id"`
	StudentClassID string `db:"student_class_id" json:"student_class_id"`
	RegNumber      string `db:"reg_number" json:"reg_number"`
	Name           string `db:"name" json:"name"`
	Year           string `db:"year" json:"year"`
}

// RosterQuery scopes a registration lookup.
type RosterQuery struct {
	Session    string
	Semester   string
	Level      int
	CourseCode string
}
