package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

func (r *Router) flashMenu(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textFlashMenu, Keyboard: Keyboard{
		row(btn("➕ Добавить карточку", "f:add")),
		row(btn(labelBack, "home")),
	}})
}

func (r *Router) flashAddStart(ctx context.Context, req *request, _ string) error {
	return r.pickPracticeGroup(ctx, req, session.StateFlashAddGroup, "f:add:g:")
}

func (r *Router) flashAddGroup(ctx context.Context, req *request, groupID string) error {
	if req.sess.State != session.StateFlashAddGroup {
		return r.expired(ctx, req)
	}
	req.sess.GroupID = groupID
	req.sess.State = session.StateFlashAddText
	return r.reply(ctx, req, Reply{Text: textFlashFormat, Markdown: true, ForceReply: true})
}

func (r *Router) flashAddText(ctx context.Context, req *request, text string) error {
	_, err := r.svc.Flashcards.Add(ctx, req.sess.GroupID, text, req.tgID())
	switch {
	case appErrors.HasCode(err, service.ErrBadCardFormat.Code):
		return r.send(ctx, req, Reply{Text: textFlashBadFormat, Markdown: true, ForceReply: true})
	case appErrors.HasCode(err, appErrors.ErrNotFound.Code):
		return r.expired(ctx, req)
	case err != nil:
		return err
	}
	req.sess.Reset()
	return r.send(ctx, req, Reply{Text: textFlashAdded, Keyboard: teacherKeyboard()})
}

func (r *Router) quizMenu(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: textQuizMenu, Keyboard: Keyboard{
		row(btn("➕ Добавить вопрос", "q:add")),
		row(btn(labelBack, "home")),
	}})
}

func (r *Router) quizAddStart(ctx context.Context, req *request, _ string) error {
	return r.pickPracticeGroup(ctx, req, session.StateQuizAddGroup, "q:add:g:")
}

func (r *Router) quizAddGroup(ctx context.Context, req *request, groupID string) error {
	if req.sess.State != session.StateQuizAddGroup {
		return r.expired(ctx, req)
	}
	req.sess.GroupID = groupID
	req.sess.State = session.StateQuizAddText
	return r.reply(ctx, req, Reply{Text: textQuizFormat, Markdown: true, ForceReply: true})
}

func (r *Router) quizAddText(ctx context.Context, req *request, text string) error {
	_, err := r.svc.Quizzes.Add(ctx, req.sess.GroupID, text, req.tgID())
	switch {
	case appErrors.HasCode(err, service.ErrBadQuizFormat.Code):
		return r.send(ctx, req, Reply{Text: textQuizBadFormat, Markdown: true, ForceReply: true})
	case appErrors.HasCode(err, appErrors.ErrNotFound.Code):
		return r.expired(ctx, req)
	case err != nil:
		return err
	}
	req.sess.Reset()
	return r.send(ctx, req, Reply{Text: textQuizAdded, Keyboard: teacherKeyboard()})
}

func (r *Router) pickPracticeGroup(ctx context.Context, req *request, state session.State, prefix string) error {
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
	req.sess.State = state
	return r.reply(ctx, req, Reply{Text: textPickGroup, Keyboard: groupKeyboard(groups, prefix, cancelRow())})
}

func noPractice(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrNoGroup.Code) || appErrors.HasCode(err, appErrors.ErrNotFound.Code)
}

func (r *Router) studentFlash(ctx context.Context, req *request, _ string) error {
	card, err := r.svc.Flashcards.Draw(ctx, req.tgID())
	if noPractice(err) {
		return r.reply(ctx, req, Reply{Text: textNoCards, Keyboard: homeOnly()})
	}
	if err != nil {
		return err
	}
	req.sess.FlashcardID = card.ID
	return r.reply(ctx, req, Reply{
		Text:     fmt.Sprintf("🎴 *%s*", escape(card.Front)),
		Markdown: true,
		Keyboard: Keyboard{
			row(btn("Показать ответ", "f:show")),
			row(btn(labelHome, "home")),
		},
	})
}

func (r *Router) flashShow(ctx context.Context, req *request, _ string) error {
	if req.sess.FlashcardID == "" {
		return r.reply(ctx, req, Reply{Text: textCardNotFound, Keyboard: homeOnly()})
	}
	card, err := r.svc.Flashcards.Get(ctx, req.sess.FlashcardID)
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return r.reply(ctx, req, Reply{Text: textCardNotFound, Keyboard: homeOnly()})
	}
	if err != nil {
		return err
	}
	return r.reply(ctx, req, Reply{
		Text:     fmt.Sprintf("🎴 *%s* → *%s*", escape(card.Front), escape(card.Back)),
		Markdown: true,
		Keyboard: Keyboard{
			row(btn("Знаю", "f:know"), btn("Не знаю", "f:unk")),
			row(btn("Ещё карточка ▶️", "s:flash")),
		},
	})
}

func (r *Router) flashMark(ctx context.Context, req *request, _ string) error {
	if req.sess.FlashcardID == "" {
		return r.reply(ctx, req, Reply{Text: textCardNotFound, Keyboard: homeOnly()})
	}
	err := r.svc.Flashcards.Mark(ctx, req.sess.FlashcardID, req.tgID(), req.data == "f:know")
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return r.reply(ctx, req, Reply{Text: textCardNotFound, Keyboard: homeOnly()})
	}
	if err != nil {
		return err
	}
	return r.reply(ctx, req, Reply{Text: textCardMarked, Keyboard: Keyboard{
		row(btn("Ещё ▶️", "s:flash")),
		row(btn(labelHome, "home")),
	}})
}

func (r *Router) studentQuiz(ctx context.Context, req *request, _ string) error {
	draw, err := r.svc.Quizzes.Draw(ctx, req.tgID())
	if noPractice(err) {
		return r.reply(ctx, req, Reply{Text: textNoQuizzes, Keyboard: homeOnly()})
	}
	if err != nil {
		return err
	}
	kb := make(Keyboard, 0, len(draw.Options)+1)
	for _, opt := range draw.Options {
		mark := "0"
		if opt.Correct {
			mark = "1"
		}
		kb = append(kb, row(btn(opt.Text, "q:ans:"+draw.Quiz.ID+":"+mark)))
	}
	kb = append(kb, row(btn("Другой вопрос ▶️", "s:quiz")))
	return r.reply(ctx, req, Reply{Text: "❓ " + draw.Quiz.Question, Keyboard: kb})
}

func (r *Router) quizAnswer(ctx context.Context, req *request, arg string) error {
	i := strings.LastIndex(arg, ":")
	if i <= 0 {
		return r.reply(ctx, req, Reply{Text: textNoQuizzes, Keyboard: homeOnly()})
	}
	correct := arg[i+1:] == "1"
	err := r.svc.Quizzes.Answer(ctx, arg[:i], req.tgID(), correct)
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return r.reply(ctx, req, Reply{Text: textNoQuizzes, Keyboard: homeOnly()})
	}
	if err != nil {
		return err
	}
	text := textWrong
	if correct {
		text = textCorrect
	}
	return r.reply(ctx, req, Reply{Text: text, Keyboard: Keyboard{
		row(btn("Ещё вопрос ▶️", "s:quiz")),
		row(btn(labelHome, "home")),
	}})
}
