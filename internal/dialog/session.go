package dialog

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/model"
)

// session — диалоговый контекст одного пользователя. Живет только в памяти,
// рестарт процесса обрывает незавершенные сценарии.
// Мьютекс сериализует события одного пользователя: событие обрабатывается
// целиком, включая переход состояния, прежде чем начнется следующее.
type session struct {
	mu     sync.Mutex
	userID int64
	state  State

	// Черновые данные текущего сценария.
	kind      model.Kind
	amount    decimal.Decimal
	startDate time.Time
}

func (s *session) reset() {
	s.state = StateIdle
	s.kind = ""
	s.amount = decimal.Decimal{}
	s.startDate = time.Time{}
}
