package models

import "time"

// StudySession is a concrete scheduled block of study time for one exam.
type StudySession struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ExamID    string    `db:"exam_id" json:"exam_id"`
	Date      time.Time `db:"session_date" json:"date"`
	Hours     float64   `db:"hours" json:"hours"`
	Completed bool      `db:"completed" json:"completed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionFilter narrows down study sessions.
type SessionFilter struct {
	ExamID    string
	From      *time.Time
	To        *time.Time
	Completed *bool
}

// BlockedDay marks a calendar day on which no sessions may be placed.
type BlockedDay struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Date      time.Time `db:"blocked_date" json:"date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
