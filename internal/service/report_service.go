package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
)

type parentDirectory interface {
	ListParents(ctx context.Context) ([]int64, error)
	ChildrenOf(ctx context.Context, parentTgID int64) ([]int64, error)
}

type gradedCounter interface {
	CountGradedSince(ctx context.Context, studentTgID int64, since time.Time) (int, error)
}

type userFinder interface {
	FindByTgID(ctx context.Context, tgID int64) (*models.User, error)
}

// ReportWindow is how far back the weekly report looks.
const ReportWindow = 7 * 24 * time.Hour

// ReportService builds the weekly digest sent to parents.
type ReportService struct {
	parents  parentDirectory
	users    userFinder
	graded   gradedCounter
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService creates an instance of ReportService.
func NewReportService(parents parentDirectory, users userFinder, graded gradedCounter, notifier Notifier, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{parents: parents, users: users, graded: graded, notifier: notifier, logger: logger, now: time.Now}
}

// Summaries returns one line of data per child linked to the parent.
func (s *ReportService) Summaries(ctx context.Context, parentTgID int64) ([]models.ChildSummary, error) {
	children, err := s.parents.ChildrenOf(ctx, parentTgID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	since := s.now().UTC().Add(-ReportWindow)
	summaries := make([]models.ChildSummary, 0, len(children))
	for _, childID := range children {
		child, err := s.users.FindByTgID(ctx, childID)
		if err != nil {
			s.logger.Warn("report: child not loaded", zap.Int64("tg_id", childID), zap.Error(err))
			continue
		}
		count, err := s.graded.CountGradedSince(ctx, childID, since)
		if err != nil {
			return nil, fmt.Errorf("count graded for %d: %w", childID, err)
		}
		summaries = append(summaries, models.ChildSummary{
			Name:        child.DisplayName(),
			GradedCount: count,
			StreakDays:  child.StreakDays,
		})
	}
	return summaries, nil
}

// RenderReport formats the digest text; empty when there is nothing to say.
func RenderReport(summaries []models.ChildSummary) string {
	if len(summaries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(summaries)+1)
	lines = append(lines, "Недельный отчёт:")
	for _, c := range summaries {
		lines = append(lines, fmt.Sprintf("👤 %s: оценок за неделю — %d, текущая серия — %d.", c.Name, c.GradedCount, c.StreakDays))
	}
	return strings.Join(lines, "\n")
}

// SendWeekly notifies every linked parent and returns how many got a report.
func (s *ReportService) SendWeekly(ctx context.Context) (int, error) {
	parents, err := s.parents.ListParents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list parents: %w", err)
	}
	sent := 0
	for _, parentID := range parents {
		summaries, err := s.Summaries(ctx, parentID)
		if err != nil {
			s.logger.Warn("report skipped", zap.Int64("parent_tg_id", parentID), zap.Error(err))
			continue
		}
		text := RenderReport(summaries)
		if text == "" {
			continue
		}
		s.notifier.Notify(ctx, parentID, text)
		sent++
	}
	return sent, nil
}
