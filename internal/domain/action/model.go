package action

import "time"

type Type string

const (
	TypeEmail   Type = "email"
	TypeCall    Type = "call"
	TypeMeeting Type = "meeting"
	TypeTask    Type = "task"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid true для известного статуса
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Draft действие, найденное в расшифровке, еще не сохраненное
type Draft struct {
	Type        Type
	Title       string
	Description string
	Metadata    map[string]string
}

type Action struct {
	ID          string
	RecordingID string
	UserID      int
	Type        Type
	Title       string
	Description string
	Status      Status
	Metadata    map[string]string
	CreatedAt   time.Time
	DecidedAt   *time.Time
}
