package bot

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type outgoing struct {
	chatID int64
	edit   bool
	reply  Reply
}

type fakeMessenger struct {
	mu       sync.Mutex
	out      []outgoing
	answered []string
	docs     []Document
	media    []string
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, reply Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, outgoing{chatID: chatID, reply: reply})
	return nil
}

func (f *fakeMessenger) Edit(_ context.Context, chatID int64, _ int, reply Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, outgoing{chatID: chatID, edit: true, reply: reply})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, _ int64, doc Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, _ int64, kind models.ContentType, fileID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, string(kind)+":"+fileID)
	return nil
}

func (f *fakeMessenger) last() Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		return Reply{}
	}
	return f.out[len(f.out)-1].reply
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.out))
	for _, o := range f.out {
		texts = append(texts, o.reply.Text)
	}
	return texts
}

type fakeUsers struct {
	users    map[int64]*models.User
	groups   *fakeGroups
	linked   []string
	progress int
	err      error
}

func (f *fakeUsers) Register(_ context.Context, req service.RegisterRequest) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[req.TgID]
	if !ok {
		u = &models.User{ID: "u" + strconv.FormatInt(req.TgID, 10), TgID: req.TgID}
		f.users[req.TgID] = u
	}
	u.Username = req.Username
	u.FullName = req.FullName
	copy := *u
	return &copy, nil
}

func (f *fakeUsers) ChooseRole(_ context.Context, tgID int64, role models.UserRole) error {
	r := role
	f.users[tgID].Role = &r
	return nil
}

func (f *fakeUsers) VerifyTeacherCode(_ context.Context, tgID int64, code string) error {
	if code != "secret" {
		return appErrors.ErrInvalidCode
	}
	return f.ChooseRole(context.Background(), tgID, models.RoleTeacher)
}

func (f *fakeUsers) JoinGroup(ctx context.Context, tgID int64, groupID string) (*models.Group, error) {
	g, err := f.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	f.users[tgID].GroupID = &g.ID
	return g, nil
}

func (f *fakeUsers) JoinGroupByName(ctx context.Context, tgID int64, name string) (*models.Group, error) {
	g, err := f.groups.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	f.users[tgID].GroupID = &g.ID
	return g, nil
}

func (f *fakeUsers) LinkParent(_ context.Context, _ int64, childUsername string) (*models.User, error) {
	for _, u := range f.users {
		if "@"+u.Username == childUsername || u.Username == childUsername {
			f.linked = append(f.linked, u.Username)
			return u, nil
		}
	}
	return nil, appErrors.ErrUnknownUser
}

func (f *fakeUsers) Progress(context.Context, int64) (int, error) {
	return f.progress, nil
}

type fakeGroups struct {
	groups []models.Group
}

func (f *fakeGroups) Create(_ context.Context, name string) (*models.Group, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid group name")
	}
	for i := range f.groups {
		if f.groups[i].Name == name {
			return &f.groups[i], nil
		}
	}
	g := models.Group{ID: "g" + strconv.Itoa(len(f.groups)+1), Name: name}
	f.groups = append(f.groups, g)
	return &g, nil
}

func (f *fakeGroups) Get(_ context.Context, id string) (*models.Group, error) {
	for i := range f.groups {
		if f.groups[i].ID == id {
			g := f.groups[i]
			return &g, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
}

func (f *fakeGroups) List(_ context.Context, limit int) ([]models.Group, error) {
	if len(f.groups) > limit {
		return f.groups[:limit], nil
	}
	return f.groups, nil
}

type fakeAssignments struct {
	items   []models.Assignment
	created []service.CreateAssignmentRequest
	pages   []int
	pageLen int
}

func (f *fakeAssignments) Create(_ context.Context, req service.CreateAssignmentRequest) (*models.Assignment, error) {
	if _, err := service.ParseLocalDateTime(req.Due, time.UTC); err != nil {
		return nil, err
	}
	f.created = append(f.created, req)
	a := models.Assignment{ID: "a" + strconv.Itoa(len(f.items)+1), Title: req.Title, Description: req.Description}
	f.items = append(f.items, a)
	return &a, nil
}

func (f *fakeAssignments) Get(_ context.Context, id string) (*models.Assignment, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			a := f.items[i]
			return &a, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
}

func (f *fakeAssignments) ListForStudent(_ context.Context, _ int64, page int) (*service.AssignmentPage, error) {
	f.pages = append(f.pages, page)
	size := f.pageLen
	if size == 0 {
		size = 3
	}
	start := (page - 1) * size
	if start > len(f.items) {
		start = len(f.items)
	}
	end := start + size
	if end > len(f.items) {
		end = len(f.items)
	}
	return &service.AssignmentPage{
		Items:   f.items[start:end],
		Page:    page,
		Offset:  start,
		HasPrev: page > 1,
		HasNext: end < len(f.items),
		Total:   len(f.items),
	}, nil
}

func (f *fakeAssignments) DuePresets() []service.DuePreset {
	return []service.DuePreset{
		{Label: "Сегодня 19:00", Value: "2026-10-15 19:00"},
		{Label: "Завтра 18:00", Value: "2026-10-16 18:00"},
	}
}

func (f *fakeAssignments) Location() *time.Location { return time.UTC }

type submitCall struct {
	assignmentID string
	tgID         int64
	content      models.SubmissionContent
}

type fakeSubmissions struct {
	submits  []submitCall
	result   service.SubmitResult
	pending  *service.PendingReview
	grades   []service.GradeRequest
	comments []string
}

func (f *fakeSubmissions) Submit(_ context.Context, assignmentID string, tgID int64, content models.SubmissionContent) (*service.SubmitResult, error) {
	if assignmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	f.submits = append(f.submits, submitCall{assignmentID: assignmentID, tgID: tgID, content: content})
	result := f.result
	return &result, nil
}

func (f *fakeSubmissions) NextPending(context.Context) (*service.PendingReview, error) {
	return f.pending, nil
}

func (f *fakeSubmissions) Grade(_ context.Context, req service.GradeRequest) (*models.Submission, error) {
	f.grades = append(f.grades, req)
	grade := req.Grade
	sub := &models.Submission{ID: req.SubmissionID, Grade: &grade}
	if req.Feedback != service.NoFeedback {
		fb := req.Feedback
		sub.Feedback = &fb
	}
	return sub, nil
}

func (f *fakeSubmissions) Comment(_ context.Context, submissionID, feedback string) (*models.Submission, error) {
	if feedback == service.NoFeedback {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty comment")
	}
	f.comments = append(f.comments, submissionID+":"+feedback)
	return &models.Submission{ID: submissionID, Feedback: &feedback}, nil
}

type fakeLessons struct {
	scheduled []service.ScheduleLessonRequest
	upcoming  []models.Lesson
}

func (f *fakeLessons) Schedule(_ context.Context, req service.ScheduleLessonRequest) (*models.Lesson, error) {
	f.scheduled = append(f.scheduled, req)
	return &models.Lesson{ID: "l1", GroupID: req.GroupID, Location: req.Location}, nil
}

func (f *fakeLessons) Upcoming(context.Context, int64) ([]models.Lesson, error) {
	return f.upcoming, nil
}

func (f *fakeLessons) Location() *time.Location { return time.UTC }

type fakeFlashcards struct {
	cards []models.Flashcard
	added []string
	marks []string
}

func (f *fakeFlashcards) Add(_ context.Context, groupID, raw string, _ int64) (*models.Flashcard, error) {
	front, back, err := service.ParseCard(raw)
	if err != nil {
		return nil, err
	}
	f.added = append(f.added, groupID+":"+front+"="+back)
	return &models.Flashcard{GroupID: groupID, Front: front, Back: back}, nil
}

func (f *fakeFlashcards) Draw(context.Context, int64) (*models.Flashcard, error) {
	if len(f.cards) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no flashcards for group")
	}
	card := f.cards[0]
	return &card, nil
}

func (f *fakeFlashcards) Get(_ context.Context, id string) (*models.Flashcard, error) {
	for i := range f.cards {
		if f.cards[i].ID == id {
			card := f.cards[i]
			return &card, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "flashcard not found")
}

func (f *fakeFlashcards) Mark(_ context.Context, cardID string, _ int64, known bool) error {
	f.marks = append(f.marks, cardID+":"+strconv.FormatBool(known))
	return nil
}

type fakeQuizzes struct {
	draw    *service.QuizDraw
	added   []string
	answers []string
}

func (f *fakeQuizzes) Add(_ context.Context, groupID, raw string, _ int64) (*models.Quiz, error) {
	quiz, err := service.ParseQuiz(raw)
	if err != nil {
		return nil, err
	}
	f.added = append(f.added, groupID+":"+quiz.Question)
	return quiz, nil
}

func (f *fakeQuizzes) Draw(context.Context, int64) (*service.QuizDraw, error) {
	if f.draw == nil {
		return nil, appErrors.ErrNoGroup
	}
	return f.draw, nil
}

func (f *fakeQuizzes) Answer(_ context.Context, quizID string, _ int64, correct bool) error {
	f.answers = append(f.answers, quizID+":"+strconv.FormatBool(correct))
	return nil
}

type fakeExports struct {
	formats []service.ExportFormat
}

func (f *fakeExports) Gradebook(_ context.Context, format service.ExportFormat) (*service.ExportFile, error) {
	f.formats = append(f.formats, format)
	return &service.ExportFile{Name: "gradebook." + string(format), Data: []byte("data"), Rows: 2}, nil
}

type routerFixture struct {
	router      *Router
	out         *fakeMessenger
	sessions    *session.MemoryStore
	users       *fakeUsers
	groups      *fakeGroups
	assignments *fakeAssignments
	submissions *fakeSubmissions
	lessons     *fakeLessons
	flashcards  *fakeFlashcards
	quizzes     *fakeQuizzes
	exports     *fakeExports
	nextUpdate  int
}

const (
	teacherID int64 = 100
	studentID int64 = 200
)

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	teacher := models.RoleTeacher
	student := models.RoleStudent
	groups := &fakeGroups{groups: []models.Group{{ID: "g1", Name: "7A"}}}
	f := &routerFixture{
		out:      &fakeMessenger{},
		sessions: session.NewMemoryStore(0),
		groups:   groups,
		users: &fakeUsers{groups: groups, users: map[int64]*models.User{
			teacherID: {ID: "u1", TgID: teacherID, Username: "teach", Role: &teacher},
			studentID: {ID: "u2", TgID: studentID, Username: "kid", FullName: "Kid", Role: &student},
		}},
		assignments: &fakeAssignments{},
		submissions: &fakeSubmissions{},
		lessons:     &fakeLessons{},
		flashcards:  &fakeFlashcards{},
		quizzes:     &fakeQuizzes{},
		exports:     &fakeExports{},
	}
	f.router = NewRouter(Services{
		Users:       f.users,
		Groups:      f.groups,
		Assignments: f.assignments,
		Submissions: f.submissions,
		Lessons:     f.lessons,
		Flashcards:  f.flashcards,
		Quizzes:     f.quizzes,
		Exports:     f.exports,
	}, f.sessions, f.out, nil, zap.NewNop())
	return f
}

func (f *routerFixture) update() int {
	f.nextUpdate++
	return f.nextUpdate
}

func (f *routerFixture) text(from int64, text string) {
	f.message(from, &tgbotapi.Message{Text: text})
}

func (f *routerFixture) command(from int64, text string) {
	cmd := text
	for i, r := range text {
		if r == ' ' {
			cmd = text[:i]
			break
		}
	}
	f.message(from, &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	})
}

func (f *routerFixture) message(from int64, msg *tgbotapi.Message) {
	msg.MessageID = f.update()
	msg.From = &tgbotapi.User{ID: from, UserName: f.users.username(from)}
	msg.Chat = &tgbotapi.Chat{ID: from}
	f.router.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: msg.MessageID, Message: msg})
}

func (f *routerFixture) callback(from int64, data string) {
	id := f.update()
	f.router.HandleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb" + strconv.Itoa(id),
			From:    &tgbotapi.User{ID: from, UserName: f.users.username(from)},
			Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: from}},
			Data:    data,
		},
	})
}

func (f *routerFixture) state(t *testing.T, chatID int64) *session.Session {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), chatID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return s
}

func (f *fakeUsers) username(tgID int64) string {
	if u, ok := f.users[tgID]; ok {
		return u.Username
	}
	return ""
}
