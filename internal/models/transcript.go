package models

// TranscriptGroup aggregates all slates of one session. PrevTNU and PrevTGP
// hold the cumulative totals of every earlier group.
type TranscriptGroup struct {
	Session string           `json:"session"`
	Level   int              `json:"level"`
	TNU     int              `json:"tnu"`
	TGP     float64          `json:"tgp"`
	GPA     float64          `json:"gpa"`
	PrevTNU int              `json:"prev_tnu"`
	PrevTGP float64          `json:"prev_tgp"`
	CGPA    float64          `json:"cgpa"`
	Results []ApprovedResult `json:"results"`
}

// Transcript is a student's ordered academic history.
type Transcript struct {
	StudentID string            `json:"student_id"`
	Groups    []TranscriptGroup `json:"groups"`
	TNU       int               `json:"tnu"`
	TGP       float64           `json:"tgp"`
	CGPA      float64           `json:"cgpa"`
}

// OutstandingCourse is a failed course with no later pass.
type OutstandingCourse struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Unit     int    `json:"unit"`
	Level    int    `json:"level"`
	Session  string `json:"session"`
	Semester string `json:"semester"`
}

// StudentSummary is the academic standing shown on a student's dashboard.
type StudentSummary struct {
	StudentID   string              `json:"student_id"`
	TNU         int                 `json:"tnu"`
	TGP         float64             `json:"tgp"`
	CGPA        float64             `json:"cgpa"`
	Honours     string              `json:"honours"`
	Outstanding []OutstandingCourse `json:"outstanding"`
}

// ClassStanding ranks one student within a class.
type ClassStanding struct {
	Rank      int     `json:"rank"`
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	RegNumber string  `json:"reg_number"`
	TNU       int     `json:"tnu"`
	TGP       float64 `json:"tgp"`
	CGPA      float64 `json:"cgpa"`
	Honours   string  `json:"honours"`
}

// BroadsheetCourse is one column of a class broadsheet.
type BroadsheetCourse struct {
	Code string `json:"code"`
	Unit int    `json:"unit"`
}

// BroadsheetRow is a student's slate for the period together with the totals
// carried in from earlier periods.
type BroadsheetRow struct {
	Result  ApprovedResult `json:"result"`
	PrevTNU int            `json:"prev_tnu"`
	PrevTGP float64        `json:"prev_tgp"`
	PrevGPA float64        `json:"prev_gpa"`
	CumTNU  int            `json:"cum_tnu"`
	CumTGP  float64        `json:"cum_tgp"`
	CumGPA  float64        `json:"cum_gpa"`
}

// Broadsheet lists every approved slate of a class for one session, semester
// and level.
type Broadsheet struct {
	ClassID           string             `json:"class_id"`
	Session           string             `json:"session"`
	Semester          string             `json:"semester"`
	Level             int                `json:"level"`
	PreviousAvailable bool               `json:"previous_available"`
	Courses           []BroadsheetCourse `json:"courses"`
	Rows              []BroadsheetRow    `json:"rows"`
}
