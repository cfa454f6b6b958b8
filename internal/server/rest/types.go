package rest

import "github.com/univx/authcore/internal/server/models"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// userPayload is the trimmed user record returned to clients. The password
// hash never leaves the service.
type userPayload struct {
	ID       string                 `json:"id"`
	Username string                 `json:"username"`
	Email    string                 `json:"email"`
	Logs     []models.ActivityEntry `json:"logs"`
}

type authResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    userPayload `json:"user"`
}

type userResponse struct {
	User userPayload `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserPayload(u *models.User) userPayload {
	logs := u.Activity
	if logs == nil {
		logs = []models.ActivityEntry{}
	}
	return userPayload{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Logs:     logs,
	}
}
