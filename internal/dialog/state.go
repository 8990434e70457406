package dialog

import "kopilka/internal/service"

// State — состояние диалога пользователя. Одновременно у пользователя живет
// не больше одного сценария.
type State int

const (
	StateIdle State = iota

	// Запись транзакции.
	StateAwaitingAmount
	StateAwaitingCategory

	// Управление категориями.
	StateChoosingAction
	StateChoosingTypeToAdd
	StateWaitingForNameToAdd
	StateChoosingTypeToDelete
	StateChoosingCategoryToDelete

	// Отчет за произвольный период.
	StateAwaitingStartDate
	StateAwaitingEndDate
)

var stateNames = map[State]string{
	StateIdle:                     "idle",
	StateAwaitingAmount:           "awaiting_amount",
	StateAwaitingCategory:         "awaiting_category",
	StateChoosingAction:           "choosing_action",
	StateChoosingTypeToAdd:        "choosing_type_to_add",
	StateWaitingForNameToAdd:      "waiting_for_name_to_add",
	StateChoosingTypeToDelete:     "choosing_type_to_delete",
	StateChoosingCategoryToDelete: "choosing_category_to_delete",
	StateAwaitingStartDate:        "awaiting_start_date",
	StateAwaitingEndDate:          "awaiting_end_date",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// EventKind — форма входящего события.
type EventKind int

const (
	// EventText — свободный текст от пользователя.
	EventText EventKind = iota
	// EventMenu — нажатие inline-кнопки; Data несет тег кнопки.
	EventMenu
)

type Event struct {
	UserID int64
	Kind   EventKind
	Text   string
	Data   string
}

// Keyboard — какую reply-клавиатуру показать вместе с сообщением.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMain
	KeyboardCancel
)

type Button struct {
	Label string
	Data  string
}

// Menu — абстрактное описание inline-клавиатуры; транспорт сам решает, как
// его отрисовать.
type Menu struct {
	Rows [][]Button
}

// Reply — исходящее сообщение диалогового движка.
type Reply struct {
	Text     string
	Keyboard Keyboard
	Menu     *Menu
	// Report заполняется терминальным переходом отчетного сценария;
	// форматирование и график — забота транспорта.
	Report *service.Report
}
