package authapi

// authRequest is the POST /auth body. Fields are action-specific:
// register uses name/email/password, login email/password, verify_token session_token.
type authRequest struct {
	Action       string `json:"action"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	SessionToken string `json:"session_token"`
}

// sessionResponse answers register and login.
type sessionResponse struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	SessionToken string `json:"session_token"`
}

// identityResponse answers verify_token and GET /auth/me.
type identityResponse struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const (
	actionRegister    = "register"
	actionLogin       = "login"
	actionVerifyToken = "verify_token"
)
