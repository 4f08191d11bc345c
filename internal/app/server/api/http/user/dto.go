package user

// Credentials логин и пароль пользователя
type Credentials struct {
	Login    string `json:"login" minLength:"1" maxLength:"64" doc:"Логин"`
	Password string `json:"password" minLength:"1" maxLength:"128" doc:"Пароль"`
}

type registerInput struct {
	Body Credentials
}

type registerOutput struct {
	Body RegisterResponse
}

type RegisterResponse struct {
	ID     int    `json:"user_id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type loginInput struct {
	Body Credentials
}

type loginOutput struct {
	Body LoginResponse
}

type LoginResponse struct {
	Token  string `json:"token,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
