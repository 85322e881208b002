package models

// ParentLink connects a parent account to a student for weekly reports.
type ParentLink struct {
	ID          string `db:"id" json:"id"`
	StudentTgID int64  `db:"student_tg_id" json:"student_tg_id"`
	ParentTgID  int64  `db:"parent_tg_id" json:"parent_tg_id"`
}

// ChildSummary is one line of the weekly parent report.
type ChildSummary struct {
	Name        string
	GradedCount int
	StreakDays  int
}
