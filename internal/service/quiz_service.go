package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type quizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	RandomForGroup(ctx context.Context, groupID string) (*models.Quiz, error)
	SaveResult(ctx context.Context, result *models.QuizResult) error
}

// ErrBadQuizFormat is returned when teacher input is not
// "question | correct | wrong1 | wrong2 | wrong3".
var ErrBadQuizFormat = appErrors.New("BAD_QUIZ_FORMAT", 400, "expected: question | correct | wrong1 | wrong2 | wrong3")

// QuizDraw is a question with its answers in display order.
type QuizDraw struct {
	Quiz    *models.Quiz
	Options []models.QuizOption
}

// QuizService manages multiple-choice questions.
type QuizService struct {
	repo    quizRepository
	users   *UserService
	groups  *GroupService
	logger  *zap.Logger
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// NewQuizService creates an instance of QuizService.
func NewQuizService(repo quizRepository, users *UserService, groups *GroupService, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{repo: repo, users: users, groups: groups, logger: logger, now: time.Now, shuffle: rand.Shuffle}
}

// ParseQuiz splits the five pipe-separated fields.
func ParseQuiz(raw string) (*models.Quiz, error) {
	parts := splitPipes(raw)
	if len(parts) < 5 {
		return nil, ErrBadQuizFormat
	}
	for _, p := range parts[:5] {
		if p == "" {
			return nil, ErrBadQuizFormat
		}
	}
	return &models.Quiz{Question: parts[0], Correct: parts[1], Wrong1: parts[2], Wrong2: parts[3], Wrong3: parts[4]}, nil
}

// Add parses the teacher's text and stores the question for the group.
func (s *QuizService) Add(ctx context.Context, groupID, raw string, teacherTgID int64) (*models.Quiz, error) {
	quiz, err := ParseQuiz(raw)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	quiz.GroupID = group.ID
	quiz.CreatedByTgID = teacherTgID
	if err := s.repo.Create(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quiz")
	}
	return quiz, nil
}

// Draw returns a random question for the student's group with shuffled options.
func (s *QuizService) Draw(ctx context.Context, studentTgID int64) (*QuizDraw, error) {
	user, err := s.users.Get(ctx, studentTgID)
	if err != nil {
		return nil, err
	}
	if user.GroupID == nil {
		return nil, appErrors.ErrNoGroup
	}
	quiz, err := s.repo.RandomForGroup(ctx, *user.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no quizzes for group")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to draw quiz")
	}

	texts := quiz.Options()
	options := make([]models.QuizOption, len(texts))
	for i, text := range texts {
		options[i] = models.QuizOption{Text: text, Correct: i == 0}
	}
	s.shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return &QuizDraw{Quiz: quiz, Options: options}, nil
}

// Answer records the student's answer.
func (s *QuizService) Answer(ctx context.Context, quizID string, studentTgID int64, correct bool) error {
	if _, err := s.repo.FindByID(ctx, quizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}
	result := &models.QuizResult{QuizID: quizID, StudentTgID: studentTgID, IsCorrect: correct, AnsweredAt: s.now().UTC()}
	if err := s.repo.SaveResult(ctx, result); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save quiz result")
	}
	return nil
}
