package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type mockLessonRepo struct {
	items     []models.Lesson
	lastFrom  time.Time
	lastLimit int
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = "l" + strconv.Itoa(len(m.items)+1)
	m.items = append(m.items, *lesson)
	return nil
}

func (m *mockLessonRepo) ListUpcomingForGroup(ctx context.Context, groupID string, from time.Time, limit int) ([]models.Lesson, error) {
	m.lastFrom = from
	m.lastLimit = limit
	var out []models.Lesson
	for _, l := range m.items {
		if l.GroupID == groupID && !l.StartsAt.Before(from) {
			out = append(out, l)
		}
	}
	return out, nil
}

func newLessonService(f *fixture, loc *time.Location) (*LessonService, *mockLessonRepo) {
	repo := &mockLessonRepo{}
	return NewLessonService(repo, f.userSvc, f.groupSvc, f.scheduler, loc, nil, nil), repo
}

func TestLessonServiceScheduleStoresUTC(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	f := newFixture()
	svc, repo := newLessonService(f, moscow)

	lesson, err := svc.Schedule(context.Background(), ScheduleLessonRequest{GroupID: "g1", StartsAt: "2030-03-10 18:30", Location: " Zoom "})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 10, 15, 30, 0, 0, time.UTC), lesson.StartsAt)
	assert.Equal(t, 60, lesson.DurationMin)
	assert.Equal(t, "Zoom", lesson.Location)
	assert.Len(t, repo.items, 1)
	require.Len(t, f.scheduler.lessons, 1)
	assert.Equal(t, lesson.ID, f.scheduler.lessons[0].ID)
}

func TestLessonServiceScheduleRejectsBadInput(t *testing.T) {
	f := newFixture()
	svc, repo := newLessonService(f, time.UTC)
	ctx := context.Background()

	_, err := svc.Schedule(ctx, ScheduleLessonRequest{GroupID: "g1", StartsAt: "10.03.2030 18:30", Location: "Zoom"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidDate.Code))

	_, err = svc.Schedule(ctx, ScheduleLessonRequest{GroupID: "g1", StartsAt: "2030-03-10 18:30", Location: "  "})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Schedule(ctx, ScheduleLessonRequest{GroupID: "nope", StartsAt: "2030-03-10 18:30", Location: "Zoom"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Empty(t, repo.items)
}

func TestLessonServiceUpcoming(t *testing.T) {
	now := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(models.User{TgID: 5, GroupID: strPtr("g1")}, models.User{TgID: 6})
	svc, repo := newLessonService(f, time.UTC)
	svc.now = func() time.Time { return now }
	repo.items = []models.Lesson{
		{ID: "past", GroupID: "g1", StartsAt: now.Add(-time.Hour)},
		{ID: "next", GroupID: "g1", StartsAt: now.Add(time.Hour)},
		{ID: "other", GroupID: "g2", StartsAt: now.Add(time.Hour)},
	}

	lessons, err := svc.Upcoming(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "next", lessons[0].ID)
	assert.Equal(t, UpcomingLessonsLimit, repo.lastLimit)
	assert.Equal(t, now, repo.lastFrom)

	_, err = svc.Upcoming(context.Background(), 6)
	assert.ErrorIs(t, err, appErrors.ErrNoGroup)
}
