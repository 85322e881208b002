package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

func (r *Router) studentTasks(ctx context.Context, req *request, arg string) error {
	page, err := strconv.Atoi(arg)
	if err != nil || page < 1 {
		page = 1
	}
	result, err := r.svc.Assignments.ListForStudent(ctx, req.tgID(), page)
	if err != nil {
		return err
	}
	if result.Total == 0 {
		return r.reply(ctx, req, Reply{Text: textNoTasks, Keyboard: studentKeyboard()})
	}

	loc := r.svc.Assignments.Location()
	cards := make([]string, 0, len(result.Items))
	kb := make(Keyboard, 0, len(result.Items)+2)
	for i, a := range result.Items {
		n := result.Offset + i + 1
		cards = append(cards, fmt.Sprintf("%d. *%s*\n%s\n🗓️ Срок: %s",
			n, escape(a.Title), escape(a.Description), service.FormatLocal(a.DueAt, loc)))
		kb = append(kb, row(btn(fmt.Sprintf("📤 Сдать: %s", truncate(a.Title, 32)), "s:submit:"+a.ID)))
	}
	if nav := pagerRow(result.Page, result.HasPrev, result.HasNext); len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb, row(btn(labelHome, "home")))

	text := "🧩 *Мои задания:*\n\n" + strings.Join(cards, "\n\n")
	return r.reply(ctx, req, Reply{Text: text, Markdown: true, Keyboard: kb})
}

func (r *Router) submitHint(ctx context.Context, req *request, _ string) error {
	return r.reply(ctx, req, Reply{Text: textSubmitHint, Keyboard: Keyboard{
		row(btn("🧩 Мои задания", "s:tasks:1")),
		row(btn(labelHome, "home")),
	}})
}

func (r *Router) submitPick(ctx context.Context, req *request, assignmentID string) error {
	a, err := r.svc.Assignments.Get(ctx, assignmentID)
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return r.reply(ctx, req, Reply{Text: textSessionExpired, Keyboard: studentKeyboard()})
	}
	if err != nil {
		return err
	}
	req.sess.Reset()
	req.sess.State = session.StateSubmitWait
	req.sess.AssignmentID = a.ID
	return r.reply(ctx, req, Reply{
		Text:     fmt.Sprintf("Отправьте одним следующим сообщением текст/файл/фото/голос для задания «%s».", a.Title),
		Keyboard: Keyboard{row(btn(labelCancel, "s:submit:cancel"))},
	})
}

func (r *Router) submitCancel(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textSubmitCancelled, Keyboard: studentKeyboard()})
}

func (r *Router) submitReceive(ctx context.Context, req *request) error {
	if req.msg.IsCommand() {
		return r.dispatchCommand(ctx, req)
	}
	content, ok := submissionContent(req)
	if !ok {
		return r.send(ctx, req, Reply{Text: textUnsupported})
	}

	result, err := r.svc.Submissions.Submit(ctx, req.sess.AssignmentID, req.tgID(), content)
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		req.sess.Reset()
		return r.send(ctx, req, Reply{Text: textSessionExpired, Keyboard: studentKeyboard()})
	}
	if err != nil {
		return err
	}
	req.sess.Reset()

	if result.Milestone {
		if err := r.send(ctx, req, Reply{Text: fmt.Sprintf("🏆 Поздравляю! Серия активности %d дней!", result.Streak)}); err != nil {
			return err
		}
	}
	return r.send(ctx, req, Reply{Text: textSubmitted, Keyboard: studentKeyboard()})
}

// submissionContent picks the payload of a message; files win over captions.
func submissionContent(req *request) (models.SubmissionContent, bool) {
	msg := req.msg
	switch {
	case msg.Document != nil:
		return models.SubmissionContent{FileID: msg.Document.FileID, FileType: models.ContentDocument, Text: msg.Caption}, true
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return models.SubmissionContent{FileID: largest.FileID, FileType: models.ContentPhoto, Text: msg.Caption}, true
	case msg.Audio != nil:
		return models.SubmissionContent{FileID: msg.Audio.FileID, FileType: models.ContentAudio, Text: msg.Caption}, true
	case msg.Voice != nil:
		return models.SubmissionContent{FileID: msg.Voice.FileID, FileType: models.ContentVoice}, true
	case strings.TrimSpace(msg.Text) != "":
		return models.SubmissionContent{Text: strings.TrimSpace(msg.Text), FileType: models.ContentText}, true
	default:
		return models.SubmissionContent{}, false
	}
}

func (r *Router) studentSchedule(ctx context.Context, req *request, _ string) error {
	lessons, err := r.svc.Lessons.Upcoming(ctx, req.tgID())
	if err != nil && !appErrors.HasCode(err, appErrors.ErrNoGroup.Code) {
		return err
	}
	if len(lessons) == 0 {
		return r.reply(ctx, req, Reply{Text: textNoLessons, Keyboard: homeOnly()})
	}
	loc := r.svc.Lessons.Location()
	lines := make([]string, 0, len(lessons))
	for _, l := range lessons {
		lines = append(lines, fmt.Sprintf("• %s — %s", service.FormatLocal(l.StartsAt, loc), escape(l.Location)))
	}
	text := "🗓️ *Ближайшие занятия:*\n" + strings.Join(lines, "\n")
	return r.reply(ctx, req, Reply{Text: text, Markdown: true, Keyboard: homeOnly()})
}

func (r *Router) studentProgress(ctx context.Context, req *request, _ string) error {
	streak, err := r.svc.Users.Progress(ctx, req.tgID())
	if err != nil {
		return err
	}
	return r.reply(ctx, req, Reply{
		Text:     fmt.Sprintf("🏆 Ваша текущая серия активности: %d дн.", streak),
		Keyboard: homeOnly(),
	})
}

func (r *Router) studentHelp(ctx context.Context, req *request, _ string) error {
	return r.reply(ctx, req, Reply{Text: textStudentHelp, Keyboard: homeOnly()})
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
