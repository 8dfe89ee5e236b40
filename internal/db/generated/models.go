package dbgen

import (
	"database/sql"
	"time"
)

type Attendance struct {
	EventID          int64
	PlayerID         int64
	Status           string
	RecordedByUserID int64
	RecordedAt       time.Time
}

type Availability struct {
	EventID         int64
	PlayerID        int64
	Status          string
	Note            sql.NullString
	UpdatedByUserID int64
	UpdatedAt       time.Time
}

type Player struct {
	ID            int64
	TeamID        int64
	UserID        sql.NullInt64
	FirstName     string
	LastName      string
	JerseyNumber  sql.NullInt64
	Position      string
	Phone         sql.NullString
	GuardianPhone sql.NullString
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ScheduleEvent struct {
	ID                 int64
	TeamID             int64
	ParentEventID      sql.NullInt64
	EventType          string
	Title              string
	Description        sql.NullString
	EventDate          string
	EndDate            sql.NullString
	StartTime          sql.NullString
	EndTime            sql.NullString
	Location           sql.NullString
	Opponent           sql.NullString
	RecurrenceKind     sql.NullString
	RecurrenceInterval sql.NullInt64
	RecurrenceEndDate  sql.NullString
	RecurrenceWeekdays sql.NullString
	RecurrenceRule     sql.NullString
	CreatedByUserID    int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Session struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Team struct {
	ID              int64
	Name            string
	Season          string
	Level           string
	CreatedByUserID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TeamMember struct {
	TeamID    int64
	UserID    int64
	Role      string
	CreatedAt time.Time
}

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
