package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
)

func TestStartShowsRoles(t *testing.T) {
	f := newRouterFixture(t)

	f.command(studentID, "/start")

	last := f.out.last()
	assert.Equal(t, textGreeting, last.Text)
	assert.Empty(t, cmp.Diff(roleKeyboard(), last.Keyboard))
}

func TestCallbackIsAnswered(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "s:help")

	require.Len(t, f.out.answered, 1)
	assert.Equal(t, textStudentHelp, f.out.last().Text)
	assert.True(t, f.out.out[0].edit)
}

func TestTeacherCallbackRejectedForStudent(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "t:new:start")

	assert.Equal(t, textTeacherOnly, f.out.last().Text)
	assert.Equal(t, session.StateIdle, f.state(t, studentID).State)
}

func TestUnknownCallbackIgnored(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "nope")

	assert.Empty(t, f.out.out)
}

func TestTeacherCodeFlow(t *testing.T) {
	f := newRouterFixture(t)
	const newcomer int64 = 300

	f.callback(newcomer, "role:teacher")
	assert.Equal(t, session.StateAwaitTeacherCode, f.state(t, newcomer).State)
	assert.True(t, f.out.last().ForceReply)

	f.text(newcomer, "wrong")
	assert.Equal(t, textBadCode, f.out.last().Text)
	assert.False(t, f.users.users[newcomer].IsTeacher())

	f.callback(newcomer, "role:teacher")
	f.text(newcomer, "secret")
	assert.Equal(t, textTeacherGranted, f.out.last().Text)
	assert.True(t, f.users.users[newcomer].IsTeacher())
	assert.Equal(t, session.StateIdle, f.state(t, newcomer).State)
}

func TestStudentRoleOffersGroups(t *testing.T) {
	f := newRouterFixture(t)
	const newcomer int64 = 301

	f.callback(newcomer, "role:student")

	last := f.out.last()
	assert.Equal(t, textPickGroup, last.Text)
	want := Keyboard{
		row(btn("7A", "s:join:g1")),
		row(btn("➕ Другая группа…", "s:join:other")),
	}
	assert.Empty(t, cmp.Diff(want, last.Keyboard))

	f.callback(newcomer, "s:join:g1")
	assert.Equal(t, textJoined, f.out.last().Text)
	require.NotNil(t, f.users.users[newcomer].GroupID)
	assert.Equal(t, "g1", *f.users.users[newcomer].GroupID)
}

func TestJoinByTypedGroupName(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "s:join:other")
	assert.Equal(t, session.StateJoinGroupName, f.state(t, studentID).State)

	f.text(studentID, "8B")
	assert.Equal(t, "Готово! Вы в группе «8B».", f.out.last().Text)
	assert.Len(t, f.groups.groups, 2)
}

func TestParentLink(t *testing.T) {
	f := newRouterFixture(t)
	const parent int64 = 400

	f.callback(parent, "role:parent")
	assert.Equal(t, session.StateParentChildUsername, f.state(t, parent).State)

	f.text(parent, "@ghost")
	assert.Equal(t, textChildNotFound, f.out.last().Text)

	f.callback(parent, "p:link")
	f.text(parent, "@kid")
	assert.Equal(t, textParentLinked, f.out.last().Text)
	assert.Equal(t, []string{"kid"}, f.users.linked)
}

func TestHelpDependsOnRole(t *testing.T) {
	const parent int64 = 400
	tests := []struct {
		name  string
		from  int64
		setup func(f *routerFixture)
		want  string
	}{
		{name: "student", from: studentID, want: textStudentHelp},
		{name: "teacher", from: teacherID, want: textTeacherHelp},
		{
			name:  "parent",
			from:  parent,
			setup: func(f *routerFixture) { f.callback(parent, "role:parent") },
			want:  textParentHelp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			f.command(tt.from, "/help")

			assert.Equal(t, tt.want, f.out.last().Text)
		})
	}
}

func TestNewGroupTaskWizard(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:new:start")
	f.callback(teacherID, "t:new:target:group")
	assert.Equal(t, session.StateNewTaskGroup, f.state(t, teacherID).State)
	f.callback(teacherID, "t:new:group:g1")
	f.text(teacherID, "Essay")
	f.text(teacherID, "Write 200 words")

	presets := f.out.last()
	assert.Equal(t, textTaskDue, presets.Text)
	assert.Equal(t, "t:new:duepreset:2026-10-15 19:00", presets.Keyboard[0][0].Data)
	assert.Equal(t, "t:new:due:manual", presets.Keyboard[2][0].Data)

	f.callback(teacherID, "t:new:duepreset:2026-10-16 18:00")
	assert.Equal(t, "Срок: 2026-10-16 18:00\n\nПодтвердить создание задания?", f.out.last().Text)

	f.callback(teacherID, "t:new:confirm")

	want := []service.CreateAssignmentRequest{{
		Target:        models.TargetGroup,
		GroupID:       "g1",
		Title:         "Essay",
		Description:   "Write 200 words",
		Due:           "2026-10-16 18:00",
		CreatedByTgID: teacherID,
	}}
	assert.Empty(t, cmp.Diff(want, f.assignments.created))
	assert.Equal(t, "Задание создано: Essay", f.out.last().Text)
	assert.Equal(t, session.StateIdle, f.state(t, teacherID).State)
}

func TestNewStudentTaskManualDue(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:new:start")
	f.callback(teacherID, "t:new:target:student")
	f.text(teacherID, "@kid")
	f.text(teacherID, "Reading")
	f.text(teacherID, "Chapter 3")
	f.callback(teacherID, "t:new:due:manual")

	f.text(teacherID, "tomorrow")
	assert.Equal(t, textBadDate, f.out.last().Text)
	assert.Equal(t, session.StateNewTaskDue, f.state(t, teacherID).State)

	f.text(teacherID, "2026-10-20 10:00")
	assert.Equal(t, session.StateNewTaskConfirm, f.state(t, teacherID).State)
	f.callback(teacherID, "t:new:confirm")

	require.Len(t, f.assignments.created, 1)
	got := f.assignments.created[0]
	assert.Equal(t, models.TargetStudent, got.Target)
	assert.Equal(t, "kid", got.StudentUsername)
	assert.Equal(t, "2026-10-20 10:00", got.Due)
}

func TestStaleConfirmExpires(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:new:confirm")

	assert.Equal(t, textSessionExpired, f.out.last().Text)
	assert.Empty(t, f.assignments.created)
}

func TestStudentTasksPaging(t *testing.T) {
	f := newRouterFixture(t)
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		f.assignments.items = append(f.assignments.items, models.Assignment{
			ID: "a-" + title, Title: title, DueAt: time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC),
		})
	}

	f.callback(studentID, "s:tasks:2")

	last := f.out.last()
	assert.Contains(t, last.Text, "4. *Four*")
	assert.Contains(t, last.Text, "🗓️ Срок: 2026-10-20 15:00")
	assert.True(t, last.Markdown)
	want := Keyboard{
		row(btn("📤 Сдать: Four", "s:submit:a-Four")),
		row(btn(labelPrev, "s:tasks:1")),
		row(btn(labelHome, "home")),
	}
	assert.Empty(t, cmp.Diff(want, last.Keyboard))
}

func TestStudentTasksEmpty(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "s:tasks:1")

	assert.Equal(t, textNoTasks, f.out.last().Text)
}

func TestSubmitPhoto(t *testing.T) {
	f := newRouterFixture(t)
	f.assignments.items = []models.Assignment{{ID: "a1", Title: "Essay"}}
	f.submissions.result = service.SubmitResult{Streak: 3, Milestone: true}

	f.callback(studentID, "s:submit:a1")
	st := f.state(t, studentID)
	assert.Equal(t, session.StateSubmitWait, st.State)
	assert.Equal(t, "a1", st.AssignmentID)

	f.message(studentID, &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}})

	require.Len(t, f.submissions.submits, 1)
	got := f.submissions.submits[0]
	assert.Equal(t, "a1", got.assignmentID)
	assert.Equal(t, models.SubmissionContent{FileID: "large", FileType: models.ContentPhoto}, got.content)
	texts := f.out.texts()
	assert.Equal(t, []string{"🏆 Поздравляю! Серия активности 3 дней!", textSubmitted}, texts[len(texts)-2:])
	assert.Equal(t, session.StateIdle, f.state(t, studentID).State)
}

func TestSubmitUnsupportedKeepsWaiting(t *testing.T) {
	f := newRouterFixture(t)
	f.assignments.items = []models.Assignment{{ID: "a1", Title: "Essay"}}

	f.callback(studentID, "s:submit:a1")
	f.message(studentID, &tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "st"}})

	assert.Equal(t, textUnsupported, f.out.last().Text)
	assert.Empty(t, f.submissions.submits)
	assert.Equal(t, session.StateSubmitWait, f.state(t, studentID).State)

	f.callback(studentID, "s:submit:cancel")
	assert.Equal(t, textSubmitCancelled, f.out.last().Text)
	assert.Equal(t, session.StateIdle, f.state(t, studentID).State)
}

func TestGradeWithoutComment(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:grade:sub-1:5")
	st := f.state(t, teacherID)
	assert.Equal(t, session.StateGradeComment, st.State)
	assert.Equal(t, "sub-1", st.SubmissionID)
	assert.Equal(t, "5", st.PendingGrade)

	f.text(teacherID, "-")

	want := []service.GradeRequest{{SubmissionID: "sub-1", Grade: "5", Feedback: "-", TeacherTgID: teacherID}}
	assert.Empty(t, cmp.Diff(want, f.submissions.grades))
	assert.Equal(t, "Оценка 5 сохранена. Комментарий: —", f.out.last().Text)
}

func TestCommentOnly(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:gradec:sub-2")
	f.text(teacherID, "-")
	assert.Equal(t, textCommentEmpty, f.out.last().Text)

	f.text(teacherID, "Check spelling")
	assert.Equal(t, []string{"sub-2:Check spelling"}, f.submissions.comments)
	assert.Empty(t, f.submissions.grades)
	assert.Equal(t, textCommentSent, f.out.last().Text)
}

func TestReviewResendsFile(t *testing.T) {
	f := newRouterFixture(t)
	fileID := "doc-1"
	kind := models.ContentDocument
	f.submissions.pending = &service.PendingReview{
		Submission: &models.Submission{ID: "sub-9", StudentTgID: studentID, FileID: &fileID, FileType: &kind},
		Assignment: &models.Assignment{Title: "Essay"},
		Student:    &models.User{FullName: "Kid", Username: "kid"},
	}

	f.callback(teacherID, "t:review")

	assert.Equal(t, []string{"document:doc-1"}, f.out.media)
	last := f.out.last()
	assert.Contains(t, last.Text, "Работа по заданию «Essay»")
	assert.Contains(t, last.Text, "Ученик: Kid (@kid)")
	assert.Empty(t, cmp.Diff(gradeKeyboard("sub-9"), last.Keyboard))
}

func TestReviewEmptyQueue(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:review")

	assert.Equal(t, textNoPending, f.out.last().Text)
}

func TestScheduleWizard(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:sch:add")
	f.callback(teacherID, "t:sch:g:g1")
	f.text(teacherID, "2026-13-01 10:00")
	assert.Equal(t, textBadLessonDate, f.out.last().Text)
	f.text(teacherID, "2026-10-21 17:30")
	f.text(teacherID, "Zoom")
	assert.Equal(t, "Добавить занятие?\nГруппа: 7A\nКогда: 2026-10-21 17:30\nГде: Zoom", f.out.last().Text)

	f.callback(teacherID, "t:sch:confirm")

	want := []service.ScheduleLessonRequest{{GroupID: "g1", StartsAt: "2026-10-21 17:30", Location: "Zoom"}}
	assert.Empty(t, cmp.Diff(want, f.lessons.scheduled))
	assert.Equal(t, textLessonAdded, f.out.last().Text)
}

func TestStudentSchedule(t *testing.T) {
	f := newRouterFixture(t)
	f.lessons.upcoming = []models.Lesson{
		{StartsAt: time.Date(2026, 10, 21, 17, 30, 0, 0, time.UTC), Location: "Room 5"},
		{StartsAt: time.Date(2026, 10, 23, 9, 0, 0, 0, time.UTC), Location: "Zoom"},
	}

	f.callback(studentID, "s:schedule")

	assert.Equal(t, "🗓️ *Ближайшие занятия:*\n• 2026-10-21 17:30 — Room 5\n• 2026-10-23 09:00 — Zoom", f.out.last().Text)
}

func TestGroupAdd(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:group:add")
	f.text(teacherID, "9C")

	assert.Equal(t, "Группа создана: 9C", f.out.last().Text)
	f.callback(teacherID, "t:groups")
	kb := f.out.last().Keyboard
	assert.Equal(t, "9C", kb[1][0].Text)
	assert.Equal(t, "noop", kb[1][0].Data)
}

func TestFlashcardAddRetriesBadFormat(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "f:add")
	f.callback(teacherID, "f:add:g:g1")
	f.text(teacherID, "apple")
	assert.Equal(t, textFlashBadFormat, f.out.last().Text)
	assert.Equal(t, session.StateFlashAddText, f.state(t, teacherID).State)

	f.text(teacherID, "apple | яблоко")
	assert.Equal(t, textFlashAdded, f.out.last().Text)
	assert.Equal(t, []string{"g1:apple=яблоко"}, f.flashcards.added)
}

func TestFlashcardPractice(t *testing.T) {
	f := newRouterFixture(t)
	f.flashcards.cards = []models.Flashcard{{ID: "c1", Front: "apple", Back: "яблоко"}}

	f.callback(studentID, "s:flash")
	assert.Equal(t, "🎴 *apple*", f.out.last().Text)

	f.callback(studentID, "f:show")
	assert.Equal(t, "🎴 *apple* → *яблоко*", f.out.last().Text)

	f.callback(studentID, "f:unk")
	assert.Equal(t, []string{"c1:false"}, f.flashcards.marks)
	assert.Equal(t, textCardMarked, f.out.last().Text)
}

func TestFlashcardShowWithoutCard(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "f:show")

	assert.Equal(t, textCardNotFound, f.out.last().Text)
}

func TestQuizAddAndAnswer(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "q:add")
	f.callback(teacherID, "q:add:g:g1")
	f.text(teacherID, "What is 'apple'? | яблоко | груша | апельсин | банан")
	assert.Equal(t, textQuizAdded, f.out.last().Text)
	assert.Equal(t, []string{"g1:What is 'apple'?"}, f.quizzes.added)

	f.quizzes.draw = &service.QuizDraw{
		Quiz:    &models.Quiz{ID: "q-1", Question: "2+2?"},
		Options: []models.QuizOption{{Text: "5"}, {Text: "4", Correct: true}},
	}
	f.callback(studentID, "s:quiz")
	kb := f.out.last().Keyboard
	assert.Equal(t, "q:ans:q-1:0", kb[0][0].Data)
	assert.Equal(t, "q:ans:q-1:1", kb[1][0].Data)

	f.callback(studentID, "q:ans:q-1:1")
	assert.Equal(t, textCorrect, f.out.last().Text)
	assert.Equal(t, []string{"q-1:true"}, f.quizzes.answers)
}

func TestQuizWithoutGroup(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(studentID, "s:quiz")

	assert.Equal(t, textNoQuizzes, f.out.last().Text)
}

func TestExportCommand(t *testing.T) {
	f := newRouterFixture(t)

	f.command(studentID, "/export pdf")
	assert.Equal(t, textTeacherOnly, f.out.last().Text)

	f.command(teacherID, "/export xls")
	assert.Equal(t, textExportUsage, f.out.last().Text)

	f.command(teacherID, "/export pdf")
	require.Len(t, f.out.docs, 1)
	assert.Equal(t, "gradebook.pdf", f.out.docs[0].Name)
	assert.Equal(t, "Журнал оценок: записей — 2", f.out.docs[0].Caption)
	assert.Equal(t, []service.ExportFormat{service.ExportPDF}, f.exports.formats)
}

func TestCancelClearsConversation(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:group:add")
	f.command(teacherID, "/cancel")

	assert.Equal(t, textCancelled, f.out.last().Text)
	assert.Equal(t, session.StateIdle, f.state(t, teacherID).State)
}

func TestEmptyTextInWizard(t *testing.T) {
	f := newRouterFixture(t)

	f.callback(teacherID, "t:group:add")
	f.message(teacherID, &tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "st"}})

	assert.Equal(t, textTextExpected, f.out.last().Text)
	assert.Equal(t, session.StateAddGroupName, f.state(t, teacherID).State)
}

func TestRegisterFailureSendsApology(t *testing.T) {
	f := newRouterFixture(t)
	f.users.err = errors.New("db down")

	f.text(studentID, "hello")

	assert.Equal(t, textInternalError, f.out.last().Text)
}

func TestIdleTextShowsHome(t *testing.T) {
	f := newRouterFixture(t)

	f.text(teacherID, "hello")

	last := f.out.last()
	assert.Equal(t, "Главное меню учителя:", last.Text)
	assert.Empty(t, cmp.Diff(teacherKeyboard(), last.Keyboard))
}

func TestUpdatesWithoutSenderIgnored(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{Text: "x"}})
	f.router.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 2})

	assert.Empty(t, f.out.out)
}
