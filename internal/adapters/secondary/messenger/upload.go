package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// UploadReusableImage загружает jpeg в me/message_attachments с is_reusable=true
func (c *Client) UploadReusableImage(ctx context.Context, filename string, data []byte) (string, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	message, err := json.Marshal(map[string]interface{}{
		"attachment": attachment{Type: "image", Payload: attachmentPayload{IsReusable: true}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal attachment message: %w", err)
	}

	messageHeader := make(textproto.MIMEHeader)
	messageHeader.Set("Content-Disposition", `form-data; name="message"`)
	messageHeader.Set("Content-Type", "application/json")
	messagePart, err := writer.CreatePart(messageHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create message part: %w", err)
	}
	if _, err := messagePart.Write(message); err != nil {
		return "", fmt.Errorf("failed to write message part: %w", err)
	}

	fileHeader := make(textproto.MIMEHeader)
	fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="filedata"; filename="%s"`, filename))
	fileHeader.Set("Content-Type", "image/jpeg")
	filePart, err := writer.CreatePart(fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create filedata part: %w", err)
	}
	if _, err := filePart.Write(data); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}

	// Закрываем writer для завершения multipart
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("me/message_attachments"), &requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	c.log.Debug("uploading attachment", "filename", filename, "size", len(data))

	var resp UploadResponse
	if err := c.do(httpReq, &resp); err != nil {
		c.log.Debug("attachment upload failed", "error", err, "filename", filename)
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	if resp.AttachmentID == "" {
		return "", fmt.Errorf("no attachment_id in upload response for %s", filename)
	}

	c.log.Debug("attachment uploaded", "filename", filename, "attachment_id", resp.AttachmentID)
	return resp.AttachmentID, nil
}
