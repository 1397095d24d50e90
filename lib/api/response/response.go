package response

import (
	"passdist/entity"
	"passdist/lib/clock"
)

type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// PasswordResponse always serializes the password key; it is null on failure
type PasswordResponse struct {
	Response
	Password *string `json:"password"`
}

type StatsResponse struct {
	Response
	Stats *entity.Stats `json:"stats,omitempty"`
}

func Ok(message string) Response {
	return Response{
		Success:   true,
		Message:   message,
		Timestamp: clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		Success:   false,
		Message:   message,
		Timestamp: clock.Now(),
	}
}

func Password(message, code string) PasswordResponse {
	return PasswordResponse{
		Response: Ok(message),
		Password: &code,
	}
}

func NoPassword(message string) PasswordResponse {
	return PasswordResponse{
		Response: Error(message),
	}
}

func Stats(stats *entity.Stats) StatsResponse {
	return StatsResponse{
		Response: Response{
			Success:   true,
			Timestamp: clock.Now(),
		},
		Stats: stats,
	}
}
