package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultClientConfig("test-token")
	config.BaseURL = server.URL
	config.Timeout = 5 * time.Second
	config.RetryAttempts = 2
	config.RetryDelay = 10 * time.Millisecond

	return NewClient(config), server
}

func writeAPIResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	err = json.NewEncoder(w).Encode(APIResponse{OK: true, Result: raw})
	require.NoError(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDING
// ══════════════════════════════════════════════════════════════════════════════

func TestClient_SendMessage(t *testing.T) {
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeAPIResult(t, w, Message{MessageID: 42, Chat: &Chat{ID: 100}})
	})

	msg, err := client.SendMessage(context.Background(), SendMessageParams{
		ChatID:           100,
		Text:             "hello",
		ParseMode:        "Markdown",
		ReplyToMessageID: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), msg.MessageID)
	assert.Equal(t, float64(100), gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, "Markdown", gotBody["parse_mode"])
	assert.Equal(t, float64(7), gotBody["reply_to_message_id"])
}

func TestClient_SendText_OmitsOptionalFields(t *testing.T) {
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeAPIResult(t, w, Message{MessageID: 1})
	})

	_, err := client.SendText(context.Background(), 100, "plain")
	require.NoError(t, err)

	assert.NotContains(t, gotBody, "parse_mode")
	assert.NotContains(t, gotBody, "reply_to_message_id")
}

func TestClient_ReplyText(t *testing.T) {
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeAPIResult(t, w, Message{MessageID: 4})
	})

	_, err := client.ReplyText(context.Background(), 100, 55, "gg")
	require.NoError(t, err)

	assert.Equal(t, "gg", gotBody["text"])
	assert.Equal(t, float64(55), gotBody["reply_to_message_id"])
	assert.NotContains(t, gotBody, "parse_mode")
}

func TestClient_ReplyMarkdown(t *testing.T) {
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeAPIResult(t, w, Message{MessageID: 2})
	})

	_, err := client.ReplyMarkdown(context.Background(), 100, 55, "**bold**")
	require.NoError(t, err)

	assert.Equal(t, "Markdown", gotBody["parse_mode"])
	assert.Equal(t, float64(55), gotBody["reply_to_message_id"])
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS AND RETRIES
// ══════════════════════════════════════════════════════════════════════════════

func TestClient_APIError_NotRetried(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		err := json.NewEncoder(w).Encode(APIResponse{
			OK:          false,
			ErrorCode:   400,
			Description: "Bad Request: chat not found",
		})
		require.NoError(t, err)
	})

	_, err := client.SendText(context.Background(), 1, "x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ServerError_Retried(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			err := json.NewEncoder(w).Encode(APIResponse{
				OK:          false,
				ErrorCode:   502,
				Description: "Bad Gateway",
			})
			require.NoError(t, err)
			return
		}
		writeAPIResult(t, w, Message{MessageID: 9})
	})

	msg, err := client.SendText(context.Background(), 1, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.MessageID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RateLimit_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			err := json.NewEncoder(w).Encode(APIResponse{
				OK:          false,
				ErrorCode:   429,
				Description: "Too Many Requests",
				Parameters:  &ResponseParameters{RetryAfter: 0},
			})
			require.NoError(t, err)
			return
		}
		writeAPIResult(t, w, Message{MessageID: 3})
	})

	_, err := client.SendText(context.Background(), 1, "x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.True(t, isRetryableError(&APIError{Code: 429}))
	assert.True(t, isRetryableError(&APIError{Code: 500}))
	assert.False(t, isRetryableError(&APIError{Code: 403}))
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATES
// ══════════════════════════════════════════════════════════════════════════════

func TestClient_GetUpdates(t *testing.T) {
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getUpdates", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeAPIResult(t, w, []Update{
			{UpdateID: 10, Message: &Message{MessageID: 1, Text: "/start"}},
			{UpdateID: 11, Message: &Message{MessageID: 2, Caption: "gg @alice"}},
		})
	})

	updates, err := client.GetUpdates(context.Background(), 5, 100, 30)
	require.NoError(t, err)

	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	assert.Equal(t, "gg @alice", updates[1].Message.Caption)
	assert.Equal(t, float64(5), gotBody["offset"])
	assert.Equal(t, float64(30), gotBody["timeout"])
}

func TestClient_GetMe(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIResult(t, w, User{ID: 99, IsBot: true, Username: "catan_wins_bot"})
	})

	user, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.True(t, user.IsBot)
	assert.Equal(t, "catan_wins_bot", user.Username)
}

func TestClient_SetMyCommands(t *testing.T) {
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/setMyCommands", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeAPIResult(t, w, true)
	})

	err := client.SetMyCommands(context.Background(), []BotCommand{
		{Command: "start", Description: "Introduce the bot"},
		{Command: "stats", Description: "Show the leaderboard"},
	})
	require.NoError(t, err)

	commands, ok := gotBody["commands"].([]any)
	require.True(t, ok)
	assert.Len(t, commands, 2)
}

func TestClient_StartPolling_AdvancesOffset(t *testing.T) {
	var calls atomic.Int32
	var secondOffset atomic.Int64

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch calls.Add(1) {
		case 1:
			writeAPIResult(t, w, []Update{{UpdateID: 100}})
		default:
			if off, ok := body["offset"].(float64); ok {
				secondOffset.Store(int64(off))
			}
			writeAPIResult(t, w, []Update{})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())

	var handled atomic.Int32
	go func() {
		_ = client.StartPolling(ctx, func(ctx context.Context, update *Update) error {
			handled.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return secondOffset.Load() == 101
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	assert.Equal(t, int32(1), handled.Load())
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want string
	}{
		{
			name: "plain command",
			msg: &Message{
				Text:     "/stats",
				Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			},
			want: "stats",
		},
		{
			name: "command with bot username",
			msg: &Message{
				Text:     "/stats@catan_wins_bot",
				Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 21}},
			},
			want: "stats",
		},
		{
			name: "command mid-text ignored",
			msg: &Message{
				Text:     "try /stats",
				Entities: []MessageEntity{{Type: "bot_command", Offset: 4, Length: 6}},
			},
			want: "",
		},
		{
			name: "no entities",
			msg:  &Message{Text: "/stats"},
			want: "",
		},
		{
			name: "zero-length entity",
			msg: &Message{
				Text:     "/stats",
				Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 0}},
			},
			want: "",
		},
		{
			name: "negative-length entity",
			msg: &Message{
				Text:     "/stats",
				Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: -3}},
			},
			want: "",
		},
		{
			name: "entity longer than text",
			msg: &Message{
				Text:     "/go",
				Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 10}},
			},
			want: "",
		},
		{
			name: "nil message",
			msg:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCommand(tt.msg))
		})
	}
}

func TestMessage_HasPhoto(t *testing.T) {
	assert.False(t, (&Message{}).HasPhoto())
	assert.False(t, (*Message)(nil).HasPhoto())
	assert.True(t, (&Message{Photo: []PhotoSize{{FileID: "f1"}}}).HasPhoto())
}

func TestIsGroupChat(t *testing.T) {
	assert.True(t, IsGroupChat(&Message{Chat: &Chat{Type: "group"}}))
	assert.True(t, IsGroupChat(&Message{Chat: &Chat{Type: "supergroup"}}))
	assert.False(t, IsGroupChat(&Message{Chat: &Chat{Type: "private"}}))
	assert.False(t, IsGroupChat(nil))
}

func TestUpdate_ParsesPhotoMessage(t *testing.T) {
	raw := `{
		"update_id": 7,
		"message": {
			"message_id": 3,
			"date": 1700000000,
			"chat": {"id": -100, "type": "group", "title": "Game Night"},
			"from": {"id": 5, "is_bot": false, "first_name": "Bob", "username": "bob"},
			"photo": [{"file_id": "a", "file_unique_id": "ua", "width": 90, "height": 90}],
			"caption": "Great game @alice!",
			"caption_entities": [{"type": "mention", "offset": 11, "length": 6}]
		}
	}`

	var update Update
	require.NoError(t, json.Unmarshal([]byte(raw), &update))

	require.NotNil(t, update.Message)
	assert.True(t, update.Message.HasPhoto())
	assert.Equal(t, "Great game @alice!", update.Message.Caption)
	require.Len(t, update.Message.CaptionEntities, 1)
	assert.Equal(t, "mention", update.Message.CaptionEntities[0].Type)
	assert.Equal(t, 11, update.Message.CaptionEntities[0].Offset)
}
