package bot

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/tutorbot/internal/models"
)

// Button labels shared across screens.
const (
	labelHome    = "🏠 Домой"
	labelBack    = "◀️ Назад"
	labelCancel  = "❌ Отмена"
	labelPrev    = "◀️"
	labelNext    = "▶️"
	maxGroupRows = 20
)

const (
	textGreeting        = "Привет! Кто вы?"
	textTeacherCode     = "Введите секретный код учителя:"
	textBadCode         = "Код неверный. Попробуйте ещё раз или /start."
	textTeacherGranted  = "Готово! Вы — учитель."
	textChildUsername   = "Введите @username ребёнка, чтобы получать отчёты:"
	textChildNotFound   = "Ученик не найден. Попросите его написать боту /start."
	textParentLinked    = "Готово! Вы будете получать недельные отчёты по ребёнку."
	textPickGroup       = "Выберите группу:"
	textNoGroups        = "Пока нет групп. Попросите учителя создать группу."
	textEnterGroupName  = "Введите название группы:"
	textJoined          = "Вы добавлены в группу! Вот ваше меню:"
	textNoTasks         = "У вас пока нет заданий."
	textSubmitHint      = "Откройте «Мои задания» и нажмите «Сдать» рядом с нужным заданием."
	textSubmitCancelled = "Отправка отменена."
	textUnsupported     = "Этот тип сообщения пока не поддерживается. Пришлите текст/файл/фото/голос."
	textSubmitted       = "Готово! Работа отправлена."
	textNoLessons       = "Ближайших занятий пока нет."
	textStudentHelp     = "Помощь:\n— «Мои задания» → карточка → «Сдать»\n— «Расписание» → список ближайших уроков\n— Карточки/Викторина — тренировки\nЕсли что-то не работает — напишите учителю 🙂"
	textTeacherHelp     = "Помощь учителю:\n— «Задания» → создать задание для группы или ученика\n— «Проверка» → оценка и комментарий к следующей работе\n— «Расписание» → добавить занятие, группа получит напоминание\n— «Карточки»/«Викторины» → добавить материалы для группы\n— /export csv или /export pdf → журнал оценок"
	textParentHelp      = "Помощь родителю:\n— «Привязать ребёнка» → укажите @username ребёнка\n— Каждый понедельник приходит отчёт об успеваемости"
	textTeacherOnly     = "Эта функция доступна только учителю."
	textInternalError   = "Что-то пошло не так. Попробуйте ещё раз или /start."
	textCancelled       = "Действие отменено."
	textTextExpected    = "Пришлите ответ текстом."
	textSessionExpired  = "Диалог устарел. Начните заново из меню."

	textTasksMenu      = "📚 Задания:"
	textTaskTarget     = "Для кого это задание?"
	textNoGroupsYet    = "Групп пока нет. Создайте в разделе «Группы»."
	textStudentName    = "Введите @username ученика:"
	textTaskTitle      = "Введите *заголовок* задания:"
	textTaskDesc       = "Теперь введите *описание* (кратко):"
	textTaskDue        = "Выберите срок сдачи или введите вручную:"
	textTaskDueManual  = "Введите срок в формате YYYY-MM-DD HH:MM:"
	textBadDate        = "Неверный формат даты. Попробуйте снова."
	textNoPending      = "Непроверенных работ нет 🎉"
	textGradeComment   = "Введите короткий комментарий к оценке (или пришлите «-», если без комментария):"
	textCommentPrompt  = "Введите комментарий к работе:"
	textCommentEmpty   = "Комментарий не может быть пустым."
	textCommentSent    = "Комментарий отправлен ученику."
	textGroupsMenu     = "Группы:"
	textNewGroupName   = "Название новой группы:"
	textBadGroupName   = "Название группы не может быть пустым."
	textScheduleMenu   = "Расписание:"
	textLessonWhen     = "Введите дату и время (YYYY-MM-DD HH:MM):"
	textLessonWhere    = "Место/ссылка (Zoom, адрес и т.п.):"
	textBadLessonDate  = "Неверная дата. Попробуйте снова."
	textLessonAdded    = "Занятие добавлено и напоминание запланировано ✅"
	textParentsInfo    = "Родители: попросите родителя нажать «Я родитель» и ввести @username ребёнка.\nЕженедельные отчёты будут приходить автоматически."
	textFlashMenu      = "Карточки слов (для учителя):"
	textFlashFormat    = "Введите карточку в формате: `слово | перевод`"
	textFlashBadFormat = "Неверный формат. Пример: *apple | яблоко*"
	textFlashAdded     = "Карточка добавлена ✅"
	textNoCards        = "Пока нет карточек для вашей группы."
	textCardNotFound   = "Карточка не найдена."
	textCardMarked     = "Запомнил! Двигаемся дальше ▶️"
	textQuizMenu       = "Викторины (для учителя):"
	textQuizFormat     = "Формат: `Вопрос | Правильный | Неверный1 | Неверный2 | Неверный3`"
	textQuizBadFormat  = "Неверный формат. Пример: *What is 'apple'? | яблоко | груша | апельсин | банан*"
	textQuizAdded      = "Вопрос добавлен ✅"
	textNoQuizzes      = "Пока нет вопросов для вашей группы."
	textCorrect        = "✅ Верно!"
	textWrong          = "❌ Неверно."
	textExportUsage    = "Формат: /export csv или /export pdf"
)

// HomeText is the menu title for the user's role.
func HomeText(u *models.User) string {
	switch {
	case u.IsTeacher():
		return "Главное меню учителя:"
	case u.IsParent():
		return "Главное меню родителя:"
	default:
		return "Главное меню ученика:"
	}
}

// HelpText explains the menu of the user's role.
func HelpText(u *models.User) string {
	switch {
	case u.IsTeacher():
		return textTeacherHelp
	case u.IsParent():
		return textParentHelp
	default:
		return textStudentHelp
	}
}

// HomeKeyboard is the main menu for the user's role. Users without a role
// get the student menu.
func HomeKeyboard(u *models.User) Keyboard {
	switch {
	case u.IsTeacher():
		return Keyboard{
			row(btn("📚 Задания", "t:tasks"), btn("📝 Проверка", "t:review")),
			row(btn("👥 Группы", "t:groups"), btn("🗓️ Расписание", "t:schedule")),
			row(btn("👪 Родители", "t:parents"), btn("🎴 Карточки", "t:flash"), btn("❓ Викторины", "t:quiz")),
			row(btn(labelHome, "home")),
		}
	case u.IsParent():
		return Keyboard{
			row(btn("👪 Привязать ребёнка", "p:link")),
			row(btn(labelHome, "home")),
		}
	default:
		return studentKeyboard()
	}
}

func studentKeyboard() Keyboard {
	return Keyboard{
		row(btn("🧩 Мои задания", "s:tasks:1")),
		row(btn("📤 Сдать работу", "s:submit")),
		row(btn("🗓️ Расписание", "s:schedule")),
		row(btn("🎴 Карточки", "s:flash"), btn("❓ Викторина", "s:quiz")),
		row(btn("🏆 Мой прогресс", "s:progress"), btn("❓ Помощь", "s:help")),
	}
}

func teacherKeyboard() Keyboard {
	role := models.RoleTeacher
	return HomeKeyboard(&models.User{Role: &role})
}

func parentKeyboard() Keyboard {
	role := models.RoleParent
	return HomeKeyboard(&models.User{Role: &role})
}

func roleKeyboard() Keyboard {
	return Keyboard{row(
		btn("Я учитель", "role:teacher"),
		btn("Я ученик", "role:student"),
		btn("Я родитель", "role:parent"),
	)}
}

func homeOnly() Keyboard {
	return Keyboard{row(btn(labelHome, "home"))}
}

// groupKeyboard lists groups as buttons with callback prefix+id, followed by
// the trailing rows.
func groupKeyboard(groups []models.Group, prefix string, trailing ...[]Button) Keyboard {
	kb := make(Keyboard, 0, len(groups)+len(trailing))
	for _, g := range groups {
		kb = append(kb, row(btn(g.Name, prefix+g.ID)))
	}
	return append(kb, trailing...)
}

func gradeKeyboard(submissionID string) Keyboard {
	grades := make([]Button, 0, 4)
	for _, g := range []string{"5", "4", "3", "2"} {
		grades = append(grades, btn(g, fmt.Sprintf("t:grade:%s:%s", submissionID, g)))
	}
	return Keyboard{
		grades,
		row(btn("💬 Комментарий", "t:gradec:"+submissionID)),
		row(btn("Следующая ▶️", "t:review")),
		row(btn(labelHome, "home")),
	}
}

func pagerRow(page int, hasPrev, hasNext bool) []Button {
	var nav []Button
	if hasPrev {
		nav = append(nav, btn(labelPrev, "s:tasks:"+strconv.Itoa(page-1)))
	}
	if hasNext {
		nav = append(nav, btn(labelNext, "s:tasks:"+strconv.Itoa(page+1)))
	}
	return nav
}
