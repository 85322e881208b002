package bot

import (
	"context"
	"time"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/service"
)

type userService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	ChooseRole(ctx context.Context, tgID int64, role models.UserRole) error
	VerifyTeacherCode(ctx context.Context, tgID int64, code string) error
	JoinGroup(ctx context.Context, tgID int64, groupID string) (*models.Group, error)
	JoinGroupByName(ctx context.Context, tgID int64, name string) (*models.Group, error)
	LinkParent(ctx context.Context, parentTgID int64, childUsername string) (*models.User, error)
	Progress(ctx context.Context, tgID int64) (int, error)
}

type groupService interface {
	Create(ctx context.Context, name string) (*models.Group, error)
	Get(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context, limit int) ([]models.Group, error)
}

type assignmentService interface {
	Create(ctx context.Context, req service.CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, id string) (*models.Assignment, error)
	ListForStudent(ctx context.Context, tgID int64, page int) (*service.AssignmentPage, error)
	DuePresets() []service.DuePreset
	Location() *time.Location
}

type submissionService interface {
	Submit(ctx context.Context, assignmentID string, studentTgID int64, content models.SubmissionContent) (*service.SubmitResult, error)
	NextPending(ctx context.Context) (*service.PendingReview, error)
	Grade(ctx context.Context, req service.GradeRequest) (*models.Submission, error)
	Comment(ctx context.Context, submissionID string, feedback string) (*models.Submission, error)
}

type lessonService interface {
	Schedule(ctx context.Context, req service.ScheduleLessonRequest) (*models.Lesson, error)
	Upcoming(ctx context.Context, tgID int64) ([]models.Lesson, error)
	Location() *time.Location
}

type flashcardService interface {
	Add(ctx context.Context, groupID, raw string, teacherTgID int64) (*models.Flashcard, error)
	Draw(ctx context.Context, studentTgID int64) (*models.Flashcard, error)
	Get(ctx context.Context, id string) (*models.Flashcard, error)
	Mark(ctx context.Context, cardID string, studentTgID int64, known bool) error
}

type quizService interface {
	Add(ctx context.Context, groupID, raw string, teacherTgID int64) (*models.Quiz, error)
	Draw(ctx context.Context, studentTgID int64) (*service.QuizDraw, error)
	Answer(ctx context.Context, quizID string, studentTgID int64, correct bool) error
}

type exportService interface {
	Gradebook(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// Services groups everything the router calls into.
type Services struct {
	Users       userService
	Groups      groupService
	Assignments assignmentService
	Submissions submissionService
	Lessons     lessonService
	Flashcards  flashcardService
	Quizzes     quizService
	Exports     exportService
}
