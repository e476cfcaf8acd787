package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (g *graphStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	g.mu.Lock()
	g.requests = append(g.requests, r)
	g.bodies = append(g.bodies, body)
	g.mu.Unlock()
	g.respond(w, r)
}

func newTestClient(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *graphStub) {
	t.Helper()
	stub := &graphStub{respond: respond}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := NewClient(&Config{
		PageAccessToken: "page-token",
		GraphAPIVersion: "v23.0",
		BaseURL:         srv.URL,
	}, logger.Nop())
	return client, stub
}

func TestSendText_WithQuickReplies(t *testing.T) {
	client, stub := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"recipient_id":"u1","message_id":"mid.1"}`))
	})

	err := client.SendText(context.Background(), "u1", "hello", []domain.QuickReplyOption{
		{Title: "🔮 Start My Reading", Payload: "Start"},
	})
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, "/v23.0/me/messages", req.URL.Path)
	assert.Equal(t, "page-token", req.URL.Query().Get("access_token"))

	var sent SendRequest
	require.NoError(t, json.Unmarshal(stub.bodies[0], &sent))
	assert.Equal(t, "u1", sent.Recipient.ID)
	assert.Equal(t, "RESPONSE", sent.MessagingType)
	assert.Equal(t, "hello", sent.Message.Text)
	require.Len(t, sent.Message.QuickReplies, 1)
	assert.Equal(t, "text", sent.Message.QuickReplies[0].ContentType)
	assert.Equal(t, "Start", sent.Message.QuickReplies[0].Payload)
}

func TestSendImages_OneMessagePerAttachment(t *testing.T) {
	client, stub := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"recipient_id":"u1","message_id":"mid"}`))
	})

	require.NoError(t, client.SendImages(context.Background(), "u1", []string{"a1", "a2", "a3"}))

	require.Len(t, stub.bodies, 3)
	for i, want := range []string{"a1", "a2", "a3"} {
		var sent SendRequest
		require.NoError(t, json.Unmarshal(stub.bodies[i], &sent))
		require.NotNil(t, sent.Message.Attachment)
		assert.Equal(t, "image", sent.Message.Attachment.Type)
		assert.Equal(t, want, sent.Message.Attachment.Payload.AttachmentID)
	}
}

func TestGraphError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	})

	err := client.SendText(context.Background(), "u1", "hello", nil)

	var graphErr *GraphError
	require.True(t, errors.As(err, &graphErr))
	assert.Equal(t, 190, graphErr.Code)
}

func TestUploadReusableImage(t *testing.T) {
	client, stub := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"attachment_id":"att-42"}`))
	})

	id, err := client.UploadReusableImage(context.Background(), "thefool.jpeg", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "att-42", id)

	req := stub.requests[0]
	assert.Equal(t, "/v23.0/me/message_attachments", req.URL.Path)
	assert.Contains(t, req.Header.Get("Content-Type"), "multipart/form-data")
	assert.Contains(t, string(stub.bodies[0]), `"is_reusable":true`)
	assert.Contains(t, string(stub.bodies[0]), `filename="thefool.jpeg"`)
}

func TestUploadReusableImage_MissingID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.UploadReusableImage(context.Background(), "thefool.jpeg", []byte{1})
	assert.Error(t, err)
}

func TestGetUserProfile(t *testing.T) {
	client, stub := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u1","first_name":"Maria","last_name":"Santos"}`))
	})

	profile, err := client.GetUserProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Maria", profile.FirstName)
	assert.Equal(t, "Santos", profile.LastName)

	req := stub.requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v23.0/u1", req.URL.Path)
	assert.Equal(t, "first_name,last_name", req.URL.Query().Get("fields"))
}

func TestMessengerProfile(t *testing.T) {
	client, stub := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":"success"}`))
	})

	require.NoError(t, client.SetGetStarted(context.Background(), "GET_STARTED"))
	require.NoError(t, client.SetGreeting(context.Background(), "Hi {{user_first_name}}"))

	require.Len(t, stub.bodies, 2)
	assert.Equal(t, "/v23.0/me/messenger_profile", stub.requests[0].URL.Path)
	assert.JSONEq(t, `{"get_started":{"payload":"GET_STARTED"}}`, string(stub.bodies[0]))
	assert.JSONEq(t, `{"greeting":[{"locale":"default","text":"Hi {{user_first_name}}"}]}`, string(stub.bodies[1]))
}
