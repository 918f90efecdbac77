package models

// UserInfo is the identity snapshot exposed by the user listing endpoints
// and used to resolve recipient usernames for notification messages.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}
