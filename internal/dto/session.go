package dto

import "github.com/cramplan/cramplan-api/internal/models"

// SessionQuery filters the session list.
type SessionQuery struct {
	ExamID    string `form:"examId"`
	From      string `form:"from"`
	To        string `form:"to"`
	Completed *bool  `form:"completed"`
}

// CompleteSessionRequest marks a session done, optionally correcting the
// hours actually studied.
type CompleteSessionRequest struct {
	ActualHours *float64 `json:"actualHours" validate:"omitempty,gt=0,lte=24"`
}

// SessionResponse is one scheduled session with its exam title attached.
type SessionResponse struct {
	models.StudySession
	ExamTitle string `json:"examTitle"`
}

// CreateBlockedDayRequest marks a day off-limits for scheduling.
type CreateBlockedDayRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=200"`
}
