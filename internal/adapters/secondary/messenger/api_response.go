package messenger

import "fmt"

// GraphError ошибка Graph API
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API error: %s (type=%s, code=%d)", e.Message, e.Type, e.Code)
}

// APIResponse общие поля ответа Graph API
type APIResponse struct {
	Error *GraphError `json:"error,omitempty"`
}

// SendResponse ответ на me/messages
type SendResponse struct {
	APIResponse
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// UploadResponse ответ на me/message_attachments
type UploadResponse struct {
	APIResponse
	AttachmentID string `json:"attachment_id"`
}

// ProfileResponse ответ на запрос профиля пользователя
type ProfileResponse struct {
	APIResponse
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ResultResponse ответ на me/messenger_profile
type ResultResponse struct {
	APIResponse
	Result string `json:"result"`
}
