package models

import "time"

// Exam is an upcoming deadline a user studies toward.
type Exam struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Title          string    `db:"title" json:"title"`
	ExamDate       time.Time `db:"exam_date" json:"exam_date"`
	Difficulty     int       `db:"difficulty" json:"difficulty"`
	Confidence     int       `db:"confidence" json:"confidence"`
	EstimatedHours float64   `db:"estimated_hours" json:"estimated_hours"`
	StudyOnExamDay bool      `db:"study_on_exam_day" json:"study_on_exam_day"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter captures supported filters for listing exams.
type ExamFilter struct {
	Search    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
