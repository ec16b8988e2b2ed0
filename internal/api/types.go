package api

// ChatRequest represents the request payload for a typed chat turn
type ChatRequest struct {
	RoleID      int64  `json:"roleId"`
	UserMessage string `json:"userMessage"`
	Backend     string `json:"backend,omitempty"`
}

// HealthResponse represents the health check payload
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Sessions int    `json:"sessions"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
