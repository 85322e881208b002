package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type flashcardRepository interface {
	Create(ctx context.Context, card *models.Flashcard) error
	FindByID(ctx context.Context, id string) (*models.Flashcard, error)
	RandomForGroup(ctx context.Context, groupID string) (*models.Flashcard, error)
	SetProgress(ctx context.Context, cardID string, studentTgID int64, status models.CardStatus, at time.Time) error
}

// ErrBadCardFormat is returned when teacher input is not "front | back".
var ErrBadCardFormat = appErrors.New("BAD_CARD_FORMAT", 400, "expected: front | back")

// FlashcardService manages vocabulary cards.
type FlashcardService struct {
	repo   flashcardRepository
	users  *UserService
	groups *GroupService
	logger *zap.Logger
	now    func() time.Time
}

// NewFlashcardService creates an instance of FlashcardService.
func NewFlashcardService(repo flashcardRepository, users *UserService, groups *GroupService, logger *zap.Logger) *FlashcardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlashcardService{repo: repo, users: users, groups: groups, logger: logger, now: time.Now}
}

// ParseCard splits "front | back"; extra segments are ignored.
func ParseCard(raw string) (front, back string, err error) {
	parts := splitPipes(raw)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrBadCardFormat
	}
	return parts[0], parts[1], nil
}

// Add parses the teacher's text and stores the card for the group.
func (s *FlashcardService) Add(ctx context.Context, groupID, raw string, teacherTgID int64) (*models.Flashcard, error) {
	front, back, err := ParseCard(raw)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	card := &models.Flashcard{GroupID: group.ID, Front: front, Back: back, CreatedByTgID: teacherTgID}
	if err := s.repo.Create(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create flashcard")
	}
	return card, nil
}

// Draw returns a random card from the student's group.
func (s *FlashcardService) Draw(ctx context.Context, studentTgID int64) (*models.Flashcard, error) {
	user, err := s.users.Get(ctx, studentTgID)
	if err != nil {
		return nil, err
	}
	if user.GroupID == nil {
		return nil, appErrors.ErrNoGroup
	}
	card, err := s.repo.RandomForGroup(ctx, *user.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no flashcards for group")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to draw flashcard")
	}
	return card, nil
}

// Get returns a card by id.
func (s *FlashcardService) Get(ctx context.Context, id string) (*models.Flashcard, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "flashcard not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flashcard")
	}
	return card, nil
}

// Mark records whether the student knows the card.
func (s *FlashcardService) Mark(ctx context.Context, cardID string, studentTgID int64, known bool) error {
	if cardID == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "flashcard not found")
	}
	status := models.CardLearning
	if known {
		status = models.CardKnown
	}
	if err := s.repo.SetProgress(ctx, cardID, studentTgID, status, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save flashcard progress")
	}
	return nil
}

func splitPipes(raw string) []string {
	parts := strings.Split(raw, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
