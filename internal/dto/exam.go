package dto

import (
	"time"

	"github.com/cramplan/cramplan-api/internal/models"
)

// CreateExamRequest registers a new exam to prepare for.
type CreateExamRequest struct {
	Title          string  `json:"title" validate:"required,max=200"`
	ExamDate       string  `json:"examDate" validate:"required,datetime=2006-01-02"`
	Difficulty     int     `json:"difficulty" validate:"required,min=1,max=5"`
	Confidence     int     `json:"confidence" validate:"required,min=1,max=5"`
	EstimatedHours float64 `json:"estimatedHours" validate:"required,gt=0,lte=500"`
	StudyOnExamDay bool    `json:"studyOnExamDay"`
}

// UpdateExamRequest carries partial updates; nil fields are left unchanged.
type UpdateExamRequest struct {
	Title          *string  `json:"title" validate:"omitempty,max=200"`
	ExamDate       *string  `json:"examDate" validate:"omitempty,datetime=2006-01-02"`
	Difficulty     *int     `json:"difficulty" validate:"omitempty,min=1,max=5"`
	Confidence     *int     `json:"confidence" validate:"omitempty,min=1,max=5"`
	EstimatedHours *float64 `json:"estimatedHours" validate:"omitempty,gt=0,lte=500"`
	StudyOnExamDay *bool    `json:"studyOnExamDay"`
}

// ExamQuery filters the exam list.
type ExamQuery struct {
	Search    string `form:"search"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// ExamResponse enriches the stored exam with planning-derived figures.
type ExamResponse struct {
	models.Exam
	AdjustedHours  float64 `json:"adjustedHours"`
	CompletedHours float64 `json:"completedHours"`
	DaysUntilExam  int     `json:"daysUntilExam"`
}

// ExamListResponse pairs the page with pagination metadata.
type ExamListResponse struct {
	Items      []ExamResponse    `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// ParseDay parses an exam-date string into a UTC calendar day.
func ParseDay(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
