package models

import "time"

// Activity types recorded in a user's history.
const (
	ActivityRegister = "register"
	ActivityLogin    = "login"
)

// ActivityEntry is one connection event in a user's history, newest first.
// Browser/OS/Device are best-effort classifications of the client's declared
// user agent and may be "Unknown".
type ActivityEntry struct {
	IP        string    `json:"ip"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
	Device    string    `json:"device,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Activity     []ActivityEntry
	CreatedAt    time.Time
}
