package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
)

// request is one update being handled.
type request struct {
	updateID   int
	chatID     int64
	messageID  int
	callbackID string
	data       string
	msg        *tgbotapi.Message
	user       *models.User
	sess       *session.Session
}

func (r *request) tgID() int64 { return r.user.TgID }

type callbackHandler func(ctx context.Context, req *request, arg string) error

type callbackRoute struct {
	pattern     string
	prefix      bool
	teacherOnly bool
	handle      callbackHandler
}

func (c callbackRoute) match(data string) (string, bool) {
	if c.prefix {
		if strings.HasPrefix(data, c.pattern) {
			return strings.TrimPrefix(data, c.pattern), true
		}
		return "", false
	}
	return "", data == c.pattern
}

// Router dispatches updates to handlers by command, callback data and the
// chat's conversation state.
type Router struct {
	svc       Services
	sessions  session.Store
	out       Messenger
	metrics   *service.MetricsService
	logger    *zap.Logger
	callbacks []callbackRoute
}

// NewRouter wires the handlers.
func NewRouter(svc Services, sessions session.Store, out Messenger, metrics *service.MetricsService, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{svc: svc, sessions: sessions, out: out, metrics: metrics, logger: logger}
	r.callbacks = r.routes()
	return r
}

func (r *Router) routes() []callbackRoute {
	exact := func(pattern string, h callbackHandler) callbackRoute {
		return callbackRoute{pattern: pattern, handle: h}
	}
	prefix := func(pattern string, h callbackHandler) callbackRoute {
		return callbackRoute{pattern: pattern, prefix: true, handle: h}
	}
	teacher := func(route callbackRoute) callbackRoute {
		route.teacherOnly = true
		return route
	}

	return []callbackRoute{
		exact("home", r.home),
		exact("noop", func(context.Context, *request, string) error { return nil }),
		prefix("role:", r.pickRole),
		exact("p:link", r.parentLinkPrompt),

		prefix("s:join:", r.studentJoin),
		prefix("s:tasks:", r.studentTasks),
		exact("s:submit", r.submitHint),
		exact("s:submit:cancel", r.submitCancel),
		prefix("s:submit:", r.submitPick),
		exact("s:schedule", r.studentSchedule),
		exact("s:progress", r.studentProgress),
		exact("s:help", r.studentHelp),
		exact("s:flash", r.studentFlash),
		exact("s:quiz", r.studentQuiz),
		exact("f:show", r.flashShow),
		exact("f:know", r.flashMark),
		exact("f:unk", r.flashMark),
		prefix("q:ans:", r.quizAnswer),

		teacher(exact("t:tasks", r.teacherTasks)),
		teacher(exact("t:new:start", r.newTaskStart)),
		teacher(prefix("t:new:target:", r.newTaskTarget)),
		teacher(prefix("t:new:group:", r.newTaskGroup)),
		teacher(prefix("t:new:duepreset:", r.newTaskDuePreset)),
		teacher(exact("t:new:due:manual", r.newTaskDueManual)),
		teacher(exact("t:new:confirm", r.newTaskConfirm)),
		teacher(exact("t:review", r.review)),
		teacher(prefix("t:grade:", r.gradePick)),
		teacher(prefix("t:gradec:", r.commentPick)),
		teacher(exact("t:groups", r.groupsMenu)),
		teacher(exact("t:group:add", r.groupAdd)),
		teacher(exact("t:schedule", r.scheduleMenu)),
		teacher(exact("t:sch:add", r.scheduleAdd)),
		teacher(prefix("t:sch:g:", r.scheduleGroup)),
		teacher(exact("t:sch:confirm", r.scheduleConfirm)),
		teacher(exact("t:parents", r.parentsInfo)),
		teacher(exact("t:flash", r.flashMenu)),
		teacher(exact("f:add", r.flashAddStart)),
		teacher(prefix("f:add:g:", r.flashAddGroup)),
		teacher(exact("t:quiz", r.quizMenu)),
		teacher(exact("q:add", r.quizAddStart)),
		teacher(prefix("q:add:g:", r.quizAddGroup)),
	}
}

// HandleUpdate processes one update to completion. Errors are reported to the
// chat and logged; they never stop the dispatcher.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	start := time.Now()
	kind, from, req := r.prepare(upd)
	if req == nil {
		r.metrics.ObserveUpdate(kind, "ignored", time.Since(start), nil)
		return
	}

	route, err := r.handle(ctx, req, from)
	if err != nil {
		r.logger.Error("update failed",
			zap.Int("update_id", req.updateID),
			zap.Int64("chat_id", req.chatID),
			zap.String("route", route),
			zap.Error(err))
		if req.sess != nil {
			req.sess.Reset()
		}
		if sendErr := r.out.Send(ctx, req.chatID, Reply{Text: textInternalError}); sendErr != nil {
			r.logger.Warn("error reply not delivered", zap.Int64("chat_id", req.chatID), zap.Error(sendErr))
		}
	}
	if req.sess != nil {
		if saveErr := r.sessions.Save(ctx, req.chatID, req.sess); saveErr != nil {
			r.logger.Warn("session not saved", zap.Int64("chat_id", req.chatID), zap.Error(saveErr))
		}
	}

	took := time.Since(start)
	r.metrics.ObserveUpdate(kind, route, took, err)
	r.logger.Info("update handled",
		zap.Int("update_id", req.updateID),
		zap.Int64("chat_id", req.chatID),
		zap.String("route", route),
		zap.Duration("took", took))
}

func (r *Router) prepare(upd tgbotapi.Update) (string, *tgbotapi.User, *request) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if cq.From == nil {
			return "callback", nil, nil
		}
		req := &request{updateID: upd.UpdateID, chatID: cq.From.ID, callbackID: cq.ID, data: cq.Data}
		if cq.Message != nil && cq.Message.Chat != nil {
			req.chatID = cq.Message.Chat.ID
			req.messageID = cq.Message.MessageID
		}
		return "callback", cq.From, req
	case upd.Message != nil:
		msg := upd.Message
		if msg.From == nil || msg.Chat == nil {
			return "message", nil, nil
		}
		return "message", msg.From, &request{updateID: upd.UpdateID, chatID: msg.Chat.ID, msg: msg}
	default:
		return "other", nil, nil
	}
}

func (r *Router) handle(ctx context.Context, req *request, from *tgbotapi.User) (string, error) {
	user, err := r.svc.Users.Register(ctx, service.RegisterRequest{
		TgID:     from.ID,
		Username: from.UserName,
		FullName: strings.TrimSpace(from.FirstName + " " + from.LastName),
	})
	if err != nil {
		return "register", err
	}
	req.user = user

	sess, err := r.sessions.Get(ctx, req.chatID)
	if err != nil {
		return "session", err
	}
	req.sess = sess

	if req.callbackID != "" {
		if err := r.out.AnswerCallback(ctx, req.callbackID); err != nil {
			r.logger.Debug("callback not answered", zap.Error(err))
		}
		return r.dispatchCallback(ctx, req)
	}
	if req.msg.IsCommand() {
		route := "/" + req.msg.Command()
		return route, r.dispatchCommand(ctx, req)
	}
	route := "state:" + string(req.sess.State)
	if req.sess.State == session.StateIdle {
		route = "text"
	}
	return route, r.dispatchMessage(ctx, req)
}

func (r *Router) dispatchCallback(ctx context.Context, req *request) (string, error) {
	for _, route := range r.callbacks {
		arg, ok := route.match(req.data)
		if !ok {
			continue
		}
		if route.teacherOnly && !req.user.IsTeacher() {
			return route.pattern, r.reply(ctx, req, Reply{Text: textTeacherOnly, Keyboard: HomeKeyboard(req.user)})
		}
		return route.pattern, route.handle(ctx, req, arg)
	}
	r.logger.Debug("unknown callback", zap.String("data", req.data))
	return "unknown", nil
}

func (r *Router) dispatchCommand(ctx context.Context, req *request) error {
	switch req.msg.Command() {
	case "start":
		req.sess.Reset()
		return r.send(ctx, req, Reply{Text: textGreeting, Keyboard: roleKeyboard()})
	case "help":
		return r.send(ctx, req, Reply{Text: HelpText(req.user), Keyboard: HomeKeyboard(req.user)})
	case "cancel":
		req.sess.Reset()
		return r.send(ctx, req, Reply{Text: textCancelled, Keyboard: HomeKeyboard(req.user)})
	case "export":
		return r.export(ctx, req, req.msg.CommandArguments())
	default:
		return r.send(ctx, req, Reply{Text: HomeText(req.user), Keyboard: HomeKeyboard(req.user)})
	}
}

type messageHandler func(ctx context.Context, req *request, text string) error

func (r *Router) dispatchMessage(ctx context.Context, req *request) error {
	if req.sess.State == session.StateSubmitWait {
		return r.submitReceive(ctx, req)
	}

	handlers := map[session.State]messageHandler{
		session.StateAwaitTeacherCode:    r.teacherCode,
		session.StateParentChildUsername: r.parentLink,
		session.StateJoinGroupName:       r.joinByName,
		session.StateNewTaskStudent:      r.newTaskStudent,
		session.StateNewTaskTitle:        r.newTaskTitle,
		session.StateNewTaskDesc:         r.newTaskDesc,
		session.StateNewTaskDue:          r.newTaskDueText,
		session.StateAddGroupName:        r.groupAddReceive,
		session.StateScheduleDateTime:    r.scheduleDateTime,
		session.StateScheduleLocation:    r.scheduleLocation,
		session.StateGradeComment:        r.gradeCommentReceive,
		session.StateFlashAddText:        r.flashAddText,
		session.StateQuizAddText:         r.quizAddText,
	}
	handler, ok := handlers[req.sess.State]
	if !ok {
		return r.send(ctx, req, Reply{Text: HomeText(req.user), Keyboard: HomeKeyboard(req.user)})
	}
	text := strings.TrimSpace(req.msg.Text)
	if text == "" {
		return r.send(ctx, req, Reply{Text: textTextExpected})
	}
	return handler(ctx, req, text)
}

// reply edits the message a callback came from, or sends a new message for
// text updates.
func (r *Router) reply(ctx context.Context, req *request, reply Reply) error {
	if req.callbackID != "" {
		return r.out.Edit(ctx, req.chatID, req.messageID, reply)
	}
	return r.out.Send(ctx, req.chatID, reply)
}

func (r *Router) send(ctx context.Context, req *request, reply Reply) error {
	return r.out.Send(ctx, req.chatID, reply)
}

func (r *Router) home(ctx context.Context, req *request, _ string) error {
	req.sess.Reset()
	return r.reply(ctx, req, Reply{Text: HomeText(req.user), Keyboard: HomeKeyboard(req.user)})
}

func (r *Router) export(ctx context.Context, req *request, args string) error {
	if !req.user.IsTeacher() {
		return r.send(ctx, req, Reply{Text: textTeacherOnly})
	}
	format, err := service.ParseExportFormat(args)
	if err != nil {
		return r.send(ctx, req, Reply{Text: textExportUsage})
	}
	file, err := r.svc.Exports.Gradebook(ctx, format)
	if err != nil {
		return err
	}
	return r.out.SendDocument(ctx, req.chatID, Document{
		Name:    file.Name,
		Data:    file.Data,
		Caption: "Журнал оценок: записей — " + strconv.Itoa(file.Rows),
	})
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}
