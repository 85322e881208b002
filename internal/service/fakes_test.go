package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
)

type mockUserRepo struct {
	users       map[int64]*models.User
	setGroupN   int
	setRoleN    int
	findErr     error
	nextID      int
	streakCalls []int
}

func newMockUserRepo(users ...models.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[int64]*models.User)}
	for i := range users {
		u := users[i]
		m.users[u.TgID] = &u
	}
	return m
}

func (m *mockUserRepo) FindByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[tgID]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.nextID++
	user.ID = "u" + strconv.Itoa(m.nextID)
	copy := *user
	m.users[user.TgID] = &copy
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, tgID int64, username, fullName string) error {
	if u, ok := m.users[tgID]; ok {
		u.Username = username
		u.FullName = fullName
	}
	return nil
}

func (m *mockUserRepo) SetRole(ctx context.Context, tgID int64, role models.UserRole) error {
	m.setRoleN++
	if u, ok := m.users[tgID]; ok {
		r := role
		u.Role = &r
	}
	return nil
}

func (m *mockUserRepo) SetGroup(ctx context.Context, tgID int64, groupID string) error {
	m.setGroupN++
	if u, ok := m.users[tgID]; ok {
		g := groupID
		u.GroupID = &g
	}
	return nil
}

func (m *mockUserRepo) ListTgIDsByGroup(ctx context.Context, groupID string) ([]int64, error) {
	var ids []int64
	for _, u := range m.users {
		if u.GroupID != nil && *u.GroupID == groupID {
			ids = append(ids, u.TgID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockUserRepo) UpdateStreak(ctx context.Context, tgID int64, streak int, at time.Time) error {
	m.streakCalls = append(m.streakCalls, streak)
	if u, ok := m.users[tgID]; ok {
		u.StreakDays = streak
		t := at
		u.LastActivity = &t
	}
	return nil
}

type mockGroupRepo struct {
	groups  map[string]*models.Group
	creates int
}

func newMockGroupRepo(groups ...models.Group) *mockGroupRepo {
	m := &mockGroupRepo{groups: make(map[string]*models.Group)}
	for i := range groups {
		g := groups[i]
		m.groups[g.ID] = &g
	}
	return m
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if g, ok := m.groups[id]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) FindByName(ctx context.Context, name string) (*models.Group, error) {
	for _, g := range m.groups {
		if g.Name == name {
			copy := *g
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.Group) error {
	m.creates++
	group.ID = "g-new-" + strconv.Itoa(m.creates)
	copy := *group
	m.groups[group.ID] = &copy
	return nil
}

func (m *mockGroupRepo) List(ctx context.Context, limit int) ([]models.Group, error) {
	var out []models.Group
	for _, g := range m.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockParentRepo struct {
	links map[int64][]int64 // parent -> children
}

func (m *mockParentRepo) Link(ctx context.Context, studentTgID, parentTgID int64) error {
	if m.links == nil {
		m.links = make(map[int64][]int64)
	}
	for _, c := range m.links[parentTgID] {
		if c == studentTgID {
			return nil
		}
	}
	m.links[parentTgID] = append(m.links[parentTgID], studentTgID)
	return nil
}

func (m *mockParentRepo) ListParents(ctx context.Context) ([]int64, error) {
	var ids []int64
	for p := range m.links {
		ids = append(ids, p)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockParentRepo) ChildrenOf(ctx context.Context, parentTgID int64) ([]int64, error) {
	return m.links[parentTgID], nil
}

type mockAssignmentRepo struct {
	items []models.Assignment
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	a.ID = "a" + strconv.Itoa(len(m.items)+1)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.items = append(m.items, *a)
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			copy := m.items[i]
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListForStudent(ctx context.Context, studentTgID int64, groupID *string) ([]models.Assignment, error) {
	var out []models.Assignment
	for i := len(m.items) - 1; i >= 0; i-- {
		a := m.items[i]
		if (a.StudentTgID != nil && *a.StudentTgID == studentTgID) || (a.GroupID != nil && groupID != nil && *a.GroupID == *groupID) {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockSubmissionRepo struct {
	items map[string]*models.Submission
	order []string
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{items: make(map[string]*models.Submission)}
}

func (m *mockSubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	s.ID = "s" + strconv.Itoa(len(m.order)+1)
	copy := *s
	m.items[s.ID] = &copy
	m.order = append(m.order, s.ID)
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.items[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) NextPending(ctx context.Context) (*models.Submission, error) {
	for _, id := range m.order {
		if m.items[id].Grade == nil {
			copy := *m.items[id]
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) SetGrade(ctx context.Context, id, grade string, feedback *string, teacherTgID int64, at time.Time) error {
	s, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Grade = &grade
	s.Feedback = feedback
	s.GradedByTgID = &teacherTgID
	s.GradedAt = &at
	return nil
}

func (m *mockSubmissionRepo) SetFeedback(ctx context.Context, id, feedback string) error {
	s, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Feedback = &feedback
	return nil
}

func (m *mockSubmissionRepo) Gradebook(ctx context.Context) ([]models.GradebookRow, error) {
	var rows []models.GradebookRow
	for _, id := range m.order {
		s := m.items[id]
		rows = append(rows, models.GradebookRow{SubmissionID: s.ID, SubmittedAt: s.SubmittedAt, Grade: s.Grade, Feedback: s.Feedback, GradedAt: s.GradedAt})
	}
	return rows, nil
}

func (m *mockSubmissionRepo) CountGradedSince(ctx context.Context, studentTgID int64, since time.Time) (int, error) {
	count := 0
	for _, s := range m.items {
		if s.StudentTgID == studentTgID && s.GradedAt != nil && !s.GradedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingNotifier) Notify(_ context.Context, chatID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{ChatID: chatID, Text: text})
}

func (r *recordingNotifier) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

type recordingScheduler struct {
	lessons     []models.Lesson
	assignments []models.Assignment
}

func (r *recordingScheduler) ScheduleLesson(ctx context.Context, lesson *models.Lesson) error {
	r.lessons = append(r.lessons, *lesson)
	return nil
}

func (r *recordingScheduler) ScheduleAssignment(ctx context.Context, a *models.Assignment) error {
	r.assignments = append(r.assignments, *a)
	return nil
}

func strPtr(s string) *string { return &s }

func rolePtr(r models.UserRole) *models.UserRole { return &r }

type fixture struct {
	users       *mockUserRepo
	groups      *mockGroupRepo
	parents     *mockParentRepo
	assignments *mockAssignmentRepo
	submissions *mockSubmissionRepo
	notifier    *recordingNotifier
	scheduler   *recordingScheduler

	userSvc       *UserService
	groupSvc      *GroupService
	assignmentSvc *AssignmentService
	submissionSvc *SubmissionService
}

func newFixture(users ...models.User) *fixture {
	f := &fixture{
		users:       newMockUserRepo(users...),
		groups:      newMockGroupRepo(models.Group{ID: "g1", Name: "B1 evening"}),
		parents:     &mockParentRepo{},
		assignments: &mockAssignmentRepo{},
		submissions: newMockSubmissionRepo(),
		notifier:    &recordingNotifier{},
		scheduler:   &recordingScheduler{},
	}
	v := validator.New()
	log := zap.NewNop()
	f.groupSvc = NewGroupService(f.groups, v, log)
	f.userSvc = NewUserService(f.users, f.groupSvc, f.parents, TeacherAuth{Code: "secret"}, v, log)
	f.assignmentSvc = NewAssignmentService(f.assignments, f.userSvc, f.groupSvc, f.scheduler, time.UTC, 3, v, log)
	f.submissionSvc = NewSubmissionService(f.submissions, f.assignmentSvc, f.users, f.notifier, NewStreakCalculator(time.UTC), v, log)
	return f
}
