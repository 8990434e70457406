package model

// UserCategory — пользовательская категория, привязанная к одному
// пользователю и одному типу транзакций.
type UserCategory struct {
	ID     int64  `json:"id,omitempty"`
	UserID int64  `json:"user_id"`
	Kind   Kind   `json:"category_type"`
	Name   string `json:"category_name"`
}
