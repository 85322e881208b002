package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

// expired answers a button or message that belongs to a conversation the
// chat is no longer in.
func (r *Router) expired(ctx context.Context, req *request) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textSessionExpired, Keyboard: HomeKeyboard(req.user)})
}

func cancelRow() []Button { return row(btn(labelCancel, "home")) }

func (r *Router) teacherTasks(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textTasksMenu, Keyboard: Keyboard{
		row(btn("➕ Новое задание", "t:new:start")),
		row(btn(labelBack, "home")),
	}})
}

func (r *Router) newTaskStart(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	req.sess.State = session.StateNewTaskTarget
	req.sess.TaskDraft()
	return r.reply(ctx, req, Reply{Text: textTaskTarget, Keyboard: Keyboard{
		row(btn("Группе", "t:new:target:group"), btn("Ученик", "t:new:target:student")),
		cancelRow(),
	}})
}

func (r *Router) newTaskTarget(ctx context.Context, req *request, target string) error {
	if req.sess.State != session.StateNewTaskTarget {
		return r.expired(ctx, req)
	}
	draft := req.sess.TaskDraft()
	switch models.TargetKind(target) {
	case models.TargetGroup:
		groups, err := r.svc.Groups.List(ctx, maxGroupRows)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			req.sess.Reset()
			return r.reply(ctx, req, Reply{Text: textNoGroupsYet, Keyboard: Keyboard{
				row(btn("👥 Группы", "t:groups")),
				row(btn(labelBack, "home")),
			}})
		}
		draft.Target = models.TargetGroup
		req.sess.State = session.StateNewTaskGroup
		return r.reply(ctx, req, Reply{Text: textPickGroup, Keyboard: groupKeyboard(groups, "t:new:group:", cancelRow())})
	case models.TargetStudent:
		draft.Target = models.TargetStudent
		req.sess.State = session.StateNewTaskStudent
		return r.reply(ctx, req, Reply{Text: textStudentName, ForceReply: true})
	default:
		return r.expired(ctx, req)
	}
}

func (r *Router) newTaskGroup(ctx context.Context, req *request, groupID string) error {
	if req.sess.State != session.StateNewTaskGroup {
		return r.expired(ctx, req)
	}
	req.sess.TaskDraft().GroupID = groupID
	req.sess.State = session.StateNewTaskTitle
	return r.reply(ctx, req, Reply{Text: textTaskTitle, Markdown: true, ForceReply: true})
}

func (r *Router) newTaskStudent(ctx context.Context, req *request, username string) error {
	req.sess.TaskDraft().StudentUsername = strings.TrimPrefix(username, "@")
	req.sess.State = session.StateNewTaskTitle
	return r.send(ctx, req, Reply{Text: textTaskTitle, Markdown: true, ForceReply: true})
}

func (r *Router) newTaskTitle(ctx context.Context, req *request, title string) error {
	req.sess.TaskDraft().Title = title
	req.sess.State = session.StateNewTaskDesc
	return r.send(ctx, req, Reply{Text: textTaskDesc, Markdown: true, ForceReply: true})
}

func (r *Router) newTaskDesc(ctx context.Context, req *request, desc string) error {
	req.sess.TaskDraft().Description = desc
	req.sess.State = session.StateNewTaskDue

	presets := r.svc.Assignments.DuePresets()
	kb := make(Keyboard, 0, len(presets)+2)
	for _, p := range presets {
		kb = append(kb, row(btn(p.Label, "t:new:duepreset:"+p.Value)))
	}
	kb = append(kb, row(btn("Ввести вручную…", "t:new:due:manual")), cancelRow())
	return r.send(ctx, req, Reply{Text: textTaskDue, Keyboard: kb})
}

func (r *Router) newTaskDuePreset(ctx context.Context, req *request, value string) error {
	if req.sess.State != session.StateNewTaskDue || req.sess.Task == nil {
		return r.expired(ctx, req)
	}
	if _, err := service.ParseLocalDateTime(value, r.svc.Assignments.Location()); err != nil {
		return r.reply(ctx, req, Reply{Text: textBadDate, Keyboard: Keyboard{row(btn(labelBack, "t:tasks"))}})
	}
	req.sess.Task.Due = value
	req.sess.State = session.StateNewTaskConfirm
	return r.reply(ctx, req, Reply{Text: confirmTaskText(value), Keyboard: Keyboard{
		row(btn("✅ Создать", "t:new:confirm")),
		row(btn(labelBack, "t:tasks")),
	}})
}

func (r *Router) newTaskDueManual(ctx context.Context, req *request, _ string) error {
	if req.sess.State != session.StateNewTaskDue {
		return r.expired(ctx, req)
	}
	return r.reply(ctx, req, Reply{Text: textTaskDueManual, ForceReply: true})
}

func (r *Router) newTaskDueText(ctx context.Context, req *request, value string) error {
	if _, err := service.ParseLocalDateTime(value, r.svc.Assignments.Location()); err != nil {
		return r.send(ctx, req, Reply{Text: textBadDate, ForceReply: true})
	}
	req.sess.TaskDraft().Due = value
	req.sess.State = session.StateNewTaskConfirm
	return r.send(ctx, req, Reply{Text: confirmTaskText(value), Keyboard: Keyboard{
		row(btn("✅ Создать", "t:new:confirm")),
		cancelRow(),
	}})
}

func confirmTaskText(due string) string {
	return fmt.Sprintf("Срок: %s\n\nПодтвердить создание задания?", due)
}

func (r *Router) newTaskConfirm(ctx context.Context, req *request, _ string) error {
	draft := req.sess.Task
	if req.sess.State != session.StateNewTaskConfirm || draft == nil {
		return r.expired(ctx, req)
	}
	back := Keyboard{row(btn(labelBack, "t:tasks"))}

	a, err := r.svc.Assignments.Create(ctx, service.CreateAssignmentRequest{
		Target:          draft.Target,
		GroupID:         draft.GroupID,
		StudentUsername: draft.StudentUsername,
		Title:           draft.Title,
		Description:     draft.Description,
		Due:             draft.Due,
		CreatedByTgID:   req.tgID(),
	})
	switch {
	case appErrors.HasCode(err, appErrors.ErrInvalidDate.Code):
		return r.reply(ctx, req, Reply{Text: textBadDate, Keyboard: back})
	case appErrors.HasCode(err, appErrors.ErrUnknownUser.Code):
		req.sess.Reset()
		return r.reply(ctx, req, Reply{Text: textChildNotFound, Keyboard: back})
	case appErrors.HasCode(err, appErrors.ErrNotFound.Code), appErrors.HasCode(err, appErrors.ErrValidation.Code):
		return r.expired(ctx, req)
	case err != nil:
		return err
	}

	req.sess.Reset()
	return r.reply(ctx, req, Reply{
		Text: fmt.Sprintf("Задание создано: %s", a.Title),
		Keyboard: Keyboard{
			row(btn("📚 К заданиям", "t:tasks")),
			row(btn(labelHome, "home")),
		},
	})
}

func (r *Router) review(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	pending, err := r.svc.Submissions.NextPending(ctx)
	if err != nil {
		return err
	}
	if pending == nil {
		return r.reply(ctx, req, Reply{Text: textNoPending, Keyboard: homeOnly()})
	}

	sub := pending.Submission
	card := reviewCard(pending, r.svc.Assignments.Location())
	if sub.FileID == nil || sub.FileType == nil {
		return r.reply(ctx, req, Reply{Text: card, Keyboard: gradeKeyboard(sub.ID)})
	}
	if err := r.out.SendMedia(ctx, req.chatID, *sub.FileType, *sub.FileID, deref(sub.TextContent)); err != nil {
		return err
	}
	return r.send(ctx, req, Reply{Text: card, Keyboard: gradeKeyboard(sub.ID)})
}

func reviewCard(p *service.PendingReview, loc *time.Location) string {
	title := "—"
	if p.Assignment != nil {
		title = p.Assignment.Title
	}
	student := fmt.Sprintf("tg_id %d", p.Submission.StudentTgID)
	if p.Student != nil {
		student = p.Student.DisplayName()
		if p.Student.Username != "" {
			student += " (@" + p.Student.Username + ")"
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Работа по заданию «%s»\nУченик: %s\nСдано: %s", title, student,
		service.FormatLocal(p.Submission.SubmittedAt, loc))
	if p.Submission.FileID == nil && p.Submission.TextContent != nil {
		b.WriteString("\n\n" + *p.Submission.TextContent)
	}
	if p.Submission.Feedback != nil {
		b.WriteString("\n💬 " + *p.Submission.Feedback)
	}
	return b.String()
}

func (r *Router) gradePick(ctx context.Context, req *request, arg string) error {
	i := strings.LastIndex(arg, ":")
	if i <= 0 || i == len(arg)-1 {
		return r.expired(ctx, req)
	}
	req.sess.Reset()
	req.sess.State = session.StateGradeComment
	req.sess.SubmissionID = arg[:i]
	req.sess.PendingGrade = arg[i+1:]
	return r.send(ctx, req, Reply{Text: textGradeComment, ForceReply: true})
}

func (r *Router) commentPick(ctx context.Context, req *request, submissionID string) error {
	req.sess.Reset()
	req.sess.State = session.StateGradeComment
	req.sess.SubmissionID = submissionID
	return r.send(ctx, req, Reply{Text: textCommentPrompt, ForceReply: true})
}

func (r *Router) gradeCommentReceive(ctx context.Context, req *request, text string) error {
	if req.sess.SubmissionID == "" {
		return r.expired(ctx, req)
	}
	next := Keyboard{
		row(btn("Проверить ещё ▶️", "t:review")),
		row(btn(labelHome, "home")),
	}

	if req.sess.PendingGrade == "" {
		_, err := r.svc.Submissions.Comment(ctx, req.sess.SubmissionID, text)
		switch {
		case appErrors.HasCode(err, appErrors.ErrValidation.Code):
			return r.send(ctx, req, Reply{Text: textCommentEmpty, ForceReply: true})
		case appErrors.HasCode(err, appErrors.ErrNotFound.Code):
			return r.expired(ctx, req)
		case err != nil:
			return err
		}
		req.sess.Reset()
		return r.send(ctx, req, Reply{Text: textCommentSent, Keyboard: next})
	}

	sub, err := r.svc.Submissions.Grade(ctx, service.GradeRequest{
		SubmissionID: req.sess.SubmissionID,
		Grade:        req.sess.PendingGrade,
		Feedback:     text,
		TeacherTgID:  req.tgID(),
	})
	switch {
	case appErrors.HasCode(err, appErrors.ErrNotFound.Code), appErrors.HasCode(err, appErrors.ErrValidation.Code):
		return r.expired(ctx, req)
	case err != nil:
		return err
	}
	req.sess.Reset()
	feedback := "—"
	if sub.Feedback != nil {
		feedback = *sub.Feedback
	}
	return r.send(ctx, req, Reply{
		Text:     fmt.Sprintf("Оценка %s сохранена. Комментарий: %s", *sub.Grade, feedback),
		Keyboard: next,
	})
}

func (r *Router) groupsMenu(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	groups, err := r.svc.Groups.List(ctx, maxGroupRows)
	if err != nil {
		return err
	}
	kb := make(Keyboard, 0, len(groups)+2)
	for _, g := range groups {
		kb = append(kb, row(btn(g.Name, "noop")))
	}
	kb = append(kb, row(btn("➕ Добавить группу", "t:group:add")), row(btn(labelBack, "home")))
	return r.reply(ctx, req, Reply{Text: textGroupsMenu, Keyboard: kb})
}

func (r *Router) groupAdd(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	req.sess.State = session.StateAddGroupName
	return r.reply(ctx, req, Reply{Text: textNewGroupName, ForceReply: true})
}

func (r *Router) groupAddReceive(ctx context.Context, req *request, name string) error {
	group, err := r.svc.Groups.Create(ctx, name)
	if appErrors.HasCode(err, appErrors.ErrValidation.Code) {
		return r.send(ctx, req, Reply{Text: textBadGroupName, ForceReply: true})
	}
	if err != nil {
		return err
	}
	req.sess.Reset()
	return r.send(ctx, req, Reply{Text: "Группа создана: " + group.Name, Keyboard: teacherKeyboard()})
}

func (r *Router) scheduleMenu(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textScheduleMenu, Keyboard: Keyboard{
		row(btn("➕ Добавить занятие", "t:sch:add")),
		row(btn(labelBack, "home")),
	}})
}

func (r *Router) scheduleAdd(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	groups, err := r.svc.Groups.List(ctx, maxGroupRows)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return r.reply(ctx, req, Reply{Text: textNoGroupsYet, Keyboard: Keyboard{
			row(btn("👥 Группы", "t:groups")),
			row(btn(labelBack, "home")),
		}})
	}
	req.sess.State = session.StateScheduleGroup
	return r.reply(ctx, req, Reply{Text: textPickGroup, Keyboard: groupKeyboard(groups, "t:sch:g:", cancelRow())})
}

func (r *Router) scheduleGroup(ctx context.Context, req *request, groupID string) error {
	if req.sess.State != session.StateScheduleGroup {
		return r.expired(ctx, req)
	}
	req.sess.LessonDraft().GroupID = groupID
	req.sess.State = session.StateScheduleDateTime
	return r.reply(ctx, req, Reply{Text: textLessonWhen, ForceReply: true})
}

func (r *Router) scheduleDateTime(ctx context.Context, req *request, value string) error {
	if _, err := service.ParseLocalDateTime(value, r.svc.Lessons.Location()); err != nil {
		return r.send(ctx, req, Reply{Text: textBadLessonDate, ForceReply: true})
	}
	req.sess.LessonDraft().StartsAt = value
	req.sess.State = session.StateScheduleLocation
	return r.send(ctx, req, Reply{Text: textLessonWhere, ForceReply: true})
}

func (r *Router) scheduleLocation(ctx context.Context, req *request, where string) error {
	draft := req.sess.LessonDraft()
	draft.Location = where
	req.sess.State = session.StateScheduleConfirm

	groupName := draft.GroupID
	if g, err := r.svc.Groups.Get(ctx, draft.GroupID); err == nil {
		groupName = g.Name
	}
	return r.send(ctx, req, Reply{
		Text: fmt.Sprintf("Добавить занятие?\nГруппа: %s\nКогда: %s\nГде: %s", groupName, draft.StartsAt, draft.Location),
		Keyboard: Keyboard{
			row(btn("✅ Добавить", "t:sch:confirm")),
			cancelRow(),
		},
	})
}

func (r *Router) scheduleConfirm(ctx context.Context, req *request, _ string) error {
	draft := req.sess.Lesson
	if req.sess.State != session.StateScheduleConfirm || draft == nil {
		return r.expired(ctx, req)
	}
	_, err := r.svc.Lessons.Schedule(ctx, service.ScheduleLessonRequest{
		GroupID:  draft.GroupID,
		StartsAt: draft.StartsAt,
		Location: draft.Location,
	})
	switch {
	case appErrors.HasCode(err, appErrors.ErrInvalidDate.Code), appErrors.HasCode(err, appErrors.ErrValidation.Code):
		req.sess.Reset()
		return r.reply(ctx, req, Reply{Text: textBadLessonDate, Keyboard: Keyboard{row(btn(labelBack, "home"))}})
	case appErrors.HasCode(err, appErrors.ErrNotFound.Code):
		return r.expired(ctx, req)
	case err != nil:
		return err
	}
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textLessonAdded, Keyboard: homeOnly()})
}

func (r *Router) parentsInfo(ctx context.Context, req *request, _ string) error {
	return r.reply(ctx, req, Reply{Text: textParentsInfo, Keyboard: Keyboard{row(btn(labelBack, "home"))}})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
