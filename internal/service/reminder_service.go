package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/pkg/config"
)

type upcomingLessons interface {
	ListStartingAfter(ctx context.Context, from time.Time) ([]models.Lesson, error)
}

type upcomingAssignments interface {
	ListDueAfter(ctx context.Context, after time.Time) ([]models.Assignment, error)
}

type weeklyReporter interface {
	SendWeekly(ctx context.Context) (int, error)
}

const weeklyReportTag = "weekly-report"

// ReminderService turns lessons and deadlines into one-time gocron jobs and
// owns the weekly parent report job. Recipients are resolved when a job fires
// so students who joined a group later still get reminded.
type ReminderService struct {
	scheduler   gocron.Scheduler
	lessons     upcomingLessons
	assignments upcomingAssignments
	members     memberLister
	reports     weeklyReporter
	notifier    Notifier
	metrics     *MetricsService
	cfg         config.ReminderConfig
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time

	mu  sync.RWMutex
	ctx context.Context
}

// NewReminderService wraps an existing scheduler.
func NewReminderService(scheduler gocron.Scheduler, lessons upcomingLessons, assignments upcomingAssignments, members memberLister, reports weeklyReporter, notifier Notifier, cfg config.ReminderConfig, loc *time.Location, metrics *MetricsService, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderService{
		scheduler:   scheduler,
		lessons:     lessons,
		assignments: assignments,
		members:     members,
		reports:     reports,
		notifier:    notifier,
		metrics:     metrics,
		cfg:         cfg,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
		ctx:         context.Background(),
	}
}

// NewScheduler builds a gocron scheduler in loc that logs through zap.
func NewScheduler(loc *time.Location, logger *zap.Logger) (gocron.Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithLogger(gocronLogger{s: logger.Named("scheduler").Sugar()}),
	)
}

// Start binds job runs to ctx and starts the scheduler.
func (s *ReminderService) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.scheduler.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.scheduler.Jobs())))
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *ReminderService) Shutdown() error {
	return s.scheduler.Shutdown()
}

// LessonReminderAt is when the group hears about the lesson.
func (s *ReminderService) LessonReminderAt(lesson *models.Lesson) time.Time {
	return lesson.StartsAt.Add(-s.cfg.LessonLead)
}

// DeadlineReminderTimes are the future instants at which the assignment's
// recipients hear about the deadline.
func (s *ReminderService) DeadlineReminderTimes(due time.Time) []time.Time {
	now := s.now()
	times := make([]time.Time, 0, len(s.cfg.DeadlineLeads))
	for _, lead := range s.cfg.DeadlineLeads {
		at := due.Add(-lead)
		if at.After(now) {
			times = append(times, at)
		}
	}
	return times
}

// ScheduleLesson plans the reminder for a lesson. Reminders that would fire
// in the past are skipped. Rescheduling the same lesson replaces its job.
func (s *ReminderService) ScheduleLesson(_ context.Context, lesson *models.Lesson) error {
	tag := "lesson:" + lesson.ID
	s.scheduler.RemoveByTags(tag)

	at := s.LessonReminderAt(lesson)
	if !at.After(s.now()) {
		return nil
	}
	snapshot := *lesson
	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(s.remindLesson, snapshot),
		gocron.WithName("lesson reminder "+lesson.ID),
		gocron.WithTags(tag, "lesson"),
	)
	if err != nil {
		return fmt.Errorf("schedule lesson reminder: %w", err)
	}
	s.metrics.ObserveReminder("lesson")
	s.logger.Debug("lesson reminder scheduled", zap.String("lesson_id", lesson.ID), zap.Time("at", at))
	return nil
}

// ScheduleAssignment plans the deadline reminders for an assignment.
func (s *ReminderService) ScheduleAssignment(_ context.Context, a *models.Assignment) error {
	tag := "assignment:" + a.ID
	s.scheduler.RemoveByTags(tag)

	snapshot := *a
	for _, at := range s.DeadlineReminderTimes(a.DueAt) {
		_, err := s.scheduler.NewJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
			gocron.NewTask(s.remindDeadline, snapshot),
			gocron.WithName("deadline reminder "+a.ID),
			gocron.WithTags(tag, "deadline"),
		)
		if err != nil {
			return fmt.Errorf("schedule deadline reminder: %w", err)
		}
		s.metrics.ObserveReminder("deadline")
	}
	return nil
}

// RescheduleAll rebuilds every future reminder from the database; called on
// startup since scheduled jobs live in memory only.
func (s *ReminderService) RescheduleAll(ctx context.Context) error {
	now := s.now().UTC()

	lessons, err := s.lessons.ListStartingAfter(ctx, now)
	if err != nil {
		return fmt.Errorf("load upcoming lessons: %w", err)
	}
	for i := range lessons {
		if err := s.ScheduleLesson(ctx, &lessons[i]); err != nil {
			return err
		}
	}

	assignments, err := s.assignments.ListDueAfter(ctx, now)
	if err != nil {
		return fmt.Errorf("load upcoming assignments: %w", err)
	}
	for i := range assignments {
		if err := s.ScheduleAssignment(ctx, &assignments[i]); err != nil {
			return err
		}
	}

	s.logger.Info("reminders rescheduled", zap.Int("lessons", len(lessons)), zap.Int("assignments", len(assignments)))
	return nil
}

// ScheduleWeeklyReport registers the recurring parent digest.
func (s *ReminderService) ScheduleWeeklyReport() error {
	s.scheduler.RemoveByTags(weeklyReportTag)
	_, err := s.scheduler.NewJob(
		gocron.WeeklyJob(1,
			gocron.NewWeekdays(s.cfg.WeeklyReportWeekday),
			gocron.NewAtTimes(gocron.NewAtTime(uint(s.cfg.WeeklyReportHour), uint(s.cfg.WeeklyReportMinute), 0)),
		),
		gocron.NewTask(s.sendWeeklyReports),
		gocron.WithName("weekly parent report"),
		gocron.WithTags(weeklyReportTag),
	)
	if err != nil {
		return fmt.Errorf("schedule weekly report: %w", err)
	}
	s.metrics.ObserveReminder("weekly_report")
	return nil
}

func (s *ReminderService) jobContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *ReminderService) remindLesson(lesson models.Lesson) {
	ctx := s.jobContext()
	members, err := s.members.GroupMembers(ctx, lesson.GroupID)
	if err != nil {
		s.logger.Warn("lesson reminder: members not loaded", zap.String("lesson_id", lesson.ID), zap.Error(err))
		return
	}
	text := fmt.Sprintf("🔔 Напоминание: занятие через %s, в %s. Место/ссылка: %s",
		humanLead(s.cfg.LessonLead), FormatLocal(lesson.StartsAt, s.loc), lesson.Location)
	for _, id := range members {
		s.notifier.Notify(ctx, id, text)
	}
}

func (s *ReminderService) remindDeadline(a models.Assignment) {
	ctx := s.jobContext()
	recipients, err := assignmentRecipients(ctx, s.members, &a)
	if err != nil {
		s.logger.Warn("deadline reminder: recipients not loaded", zap.String("assignment_id", a.ID), zap.Error(err))
		return
	}
	text := fmt.Sprintf("⏰ Напоминание: дедлайн по заданию «%s» в %s.", a.Title, FormatLocal(a.DueAt, s.loc))
	for _, id := range recipients {
		s.notifier.Notify(ctx, id, text)
	}
}

func (s *ReminderService) sendWeeklyReports() {
	sent, err := s.reports.SendWeekly(s.jobContext())
	if err != nil {
		s.logger.Warn("weekly report failed", zap.Error(err))
		return
	}
	s.logger.Info("weekly reports sent", zap.Int("parents", sent))
}

func humanLead(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d ч", int(d/time.Hour))
	}
	return fmt.Sprintf("%d мин", int(d/time.Minute))
}

type gocronLogger struct {
	s *zap.SugaredLogger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
