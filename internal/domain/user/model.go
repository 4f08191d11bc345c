package user

import "time"

// User владелец записей. Login совпадает с owner id в очереди клиента.
type User struct {
	ID           int
	Login        string
	PasswordHash string
	CreatedAt    time.Time
	// LastLoginAt nil, пока пользователь ни разу не входил
	LastLoginAt *time.Time
}
