package bot

import (
	"context"
	"fmt"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/session"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

const maxJoinGroups = 10

func (r *Router) pickRole(ctx context.Context, req *request, role string) error {
	req.sess.Reset()
	switch models.UserRole(role) {
	case models.RoleTeacher:
		req.sess.State = session.StateAwaitTeacherCode
		return r.reply(ctx, req, Reply{Text: textTeacherCode, ForceReply: true})
	case models.RoleParent:
		if err := r.svc.Users.ChooseRole(ctx, req.tgID(), models.RoleParent); err != nil {
			return err
		}
		req.sess.State = session.StateParentChildUsername
		return r.reply(ctx, req, Reply{Text: textChildUsername, ForceReply: true})
	case models.RoleStudent:
		if err := r.svc.Users.ChooseRole(ctx, req.tgID(), models.RoleStudent); err != nil {
			return err
		}
		return r.showJoinGroups(ctx, req)
	default:
		return r.reply(ctx, req, Reply{Text: textGreeting, Keyboard: roleKeyboard()})
	}
}

func (r *Router) showJoinGroups(ctx context.Context, req *request) error {
	groups, err := r.svc.Groups.List(ctx, maxJoinGroups)
	if err != nil {
		return err
	}
	other := row(btn("➕ Другая группа…", "s:join:other"))
	if len(groups) == 0 {
		return r.reply(ctx, req, Reply{Text: textNoGroups, Keyboard: Keyboard{other}})
	}
	return r.reply(ctx, req, Reply{Text: textPickGroup, Keyboard: groupKeyboard(groups, "s:join:", other)})
}

func (r *Router) teacherCode(ctx context.Context, req *request, code string) error {
	req.sess.Reset()
	err := r.svc.Users.VerifyTeacherCode(ctx, req.tgID(), code)
	if appErrors.HasCode(err, appErrors.ErrInvalidCode.Code) {
		return r.send(ctx, req, Reply{Text: textBadCode})
	}
	if err != nil {
		return err
	}
	return r.send(ctx, req, Reply{Text: textTeacherGranted, Keyboard: teacherKeyboard()})
}

func (r *Router) parentLinkPrompt(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	req.sess.State = session.StateParentChildUsername
	return r.reply(ctx, req, Reply{Text: textChildUsername, ForceReply: true})
}

func (r *Router) parentLink(ctx context.Context, req *request, username string) error {
	req.sess.Reset()
	_, err := r.svc.Users.LinkParent(ctx, req.tgID(), username)
	if appErrors.HasCode(err, appErrors.ErrUnknownUser.Code) {
		return r.send(ctx, req, Reply{Text: textChildNotFound, Keyboard: parentKeyboard()})
	}
	if err != nil {
		return err
	}
	return r.send(ctx, req, Reply{Text: textParentLinked, Keyboard: parentKeyboard()})
}

func (r *Router) studentJoin(ctx context.Context, req *request, groupID string) error {
	if groupID == "other" {
		req.sess.Reset()
		req.sess.State = session.StateJoinGroupName
		return r.reply(ctx, req, Reply{Text: textEnterGroupName, ForceReply: true})
	}
	_, err := r.svc.Users.JoinGroup(ctx, req.tgID(), groupID)
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return r.showJoinGroups(ctx, req)
	}
	if err != nil {
		return err
	}
	return r.reply(ctx, req, Reply{Text: textJoined, Keyboard: studentKeyboard()})
}

func (r *Router) joinByName(ctx context.Context, req *request, name string) error {
	group, err := r.svc.Users.JoinGroupByName(ctx, req.tgID(), name)
	if appErrors.HasCode(err, appErrors.ErrValidation.Code) {
		return r.send(ctx, req, Reply{Text: textBadGroupName})
	}
	if err != nil {
		return err
	}
	req.sess.Reset()
	return r.send(ctx, req, Reply{Text: fmt.Sprintf("Готово! Вы в группе «%s».", group.Name), Keyboard: studentKeyboard()})
}
