package dto

// GeneratePlanRequest asks the planner for a fresh proposal. All fields are
// optional overrides of the user's stored settings.
type GeneratePlanRequest struct {
	DailyMaxHours  *float64 `json:"dailyMaxHours" validate:"omitempty,gt=0,lte=16"`
	DailySoftHours *float64 `json:"dailySoftHours" validate:"omitempty,gt=0,lte=16"`
	SessionMinutes *int     `json:"sessionMinutes" validate:"omitempty,min=15,max=240"`
	StartDate      *string  `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	ExamIDs        []string `json:"examIds" validate:"omitempty,dive,required"`
}

// PlanSessionProposal is one proposed session.
type PlanSessionProposal struct {
	Date   string  `json:"date"`
	ExamID string  `json:"examId"`
	Title  string  `json:"title"`
	Hours  float64 `json:"hours"`
}

// PlanDayProposal groups one day's proposed sessions.
type PlanDayProposal struct {
	Date     string                `json:"date"`
	Total    float64               `json:"total"`
	Sessions []PlanSessionProposal `json:"sessions"`
}

// PlanIssue surfaces a validation finding on the proposal.
type PlanIssue struct {
	Type   string `json:"type"`
	ExamID string `json:"examId,omitempty"`
	Date   string `json:"date,omitempty"`
	Detail string `json:"detail"`
}

// PlanOverload summarises days above the daily budget.
type PlanOverload struct {
	Days        int     `json:"days"`
	ExcessHours float64 `json:"excessHours"`
}

// PlanStats describes the proposal as a whole.
type PlanStats struct {
	Mode       string  `json:"mode"`
	TotalHours float64 `json:"totalHours"`
	StudyDays  int     `json:"studyDays"`
	Exams      int     `json:"exams"`
}

// GeneratePlanResponse returns the built proposal. It is held server-side
// until applied or expired.
type GeneratePlanResponse struct {
	ProposalID string            `json:"proposalId"`
	ExpiresAt  string            `json:"expiresAt"`
	Stats      PlanStats         `json:"stats"`
	Days       []PlanDayProposal `json:"days"`
	Issues     []PlanIssue       `json:"issues"`
	Overload   *PlanOverload     `json:"overload,omitempty"`
}

// ApplyPlanRequest persists a previously generated proposal.
type ApplyPlanRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// ApplyPlanResponse reports what the apply step wrote.
type ApplyPlanResponse struct {
	SessionsCreated int `json:"sessionsCreated"`
	SessionsRemoved int `json:"sessionsRemoved"`
}

// CurrentPlanResponse is the persisted calendar, grouped per day.
type CurrentPlanResponse struct {
	Days  []PlanDayProposal `json:"days"`
	Stats PlanStats         `json:"stats"`
}
