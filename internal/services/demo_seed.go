package services

import (
	"context"

	"github.com/isdelr/skillnotes-be/internal/models"
)

// DemoNoteTitle is the title of the note seeded into new accounts.
const DemoNoteTitle = "Demo"

// DemoNoteText showcases the supported Markdown.
const DemoNoteText = "# Demo\n\n" +
	"Добро пожаловать в SkillNotes!\n\n" +
	"Эта заметка демонстрирует возможности **Markdown**.\n\n" +
	"## Форматирование\n\n" +
	"- *Курсив*\n" +
	"- **Жирный текст**\n" +
	"- ~~Зачёркнутый~~\n\n" +
	"## Список задач\n\n" +
	"- [x] Создать заметку\n" +
	"- [x] Отредактировать\n" +
	"- [x] Архивировать\n" +
	"- [x] Скачать в PDF\n\n" +
	"## Цитата\n\n" +
	"> SkillNotes помогает быстро сохранять мысли.\n\n" +
	"## Код\n\n" +
	"```js\n" +
	"console.log('Hello, SkillNotes!');\n" +
	"```\n\n" +
	"## Таблица\n\n" +
	"| Возможность | Поддержка |\n" +
	"|--------------|-----------|\n" +
	"| Markdown     | ✅ |\n" +
	"| Архив        | ✅ |\n" +
	"| PDF экспорт  | ✅ |\n"

// DemoNoteSeeder returns a registration hook that creates the demo note for
// users who do not have any notes yet.
func DemoNoteSeeder(notes NoteServiceProvider) RegistrationHook {
	return func(ctx context.Context, user models.User) error {
		has, err := notes.HasNotes(ctx, user.ID)
		if err != nil {
			return err
		}
		if has {
			return nil
		}
		_, err = notes.CreateNote(ctx, user.ID, DemoNoteTitle, DemoNoteText)
		return err
	}
}
