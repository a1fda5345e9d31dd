package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = nil
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	c := NewClient("bot-token")
	c.baseURL = server.URL

	if err := c.Send(context.Background(), "12345", "<b>digest</b>", true); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotBody["chat_id"] != "12345" || gotBody["text"] != "<b>digest</b>" {
		t.Fatalf("body = %v", gotBody)
	}
	if gotBody["parse_mode"] != "HTML" {
		t.Fatalf("parse_mode = %v, want HTML", gotBody["parse_mode"])
	}
	if gotBody["disable_web_page_preview"] != true {
		t.Fatal("link previews must be disabled")
	}

	// Plain progress messages carry no parse mode.
	if err := c.Send(context.Background(), "12345", "Fetching data from the tracker...", false); err != nil {
		t.Fatalf("Send plain: %v", err)
	}
	if _, ok := gotBody["parse_mode"]; ok {
		t.Fatal("plain message must not set parse_mode")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"chat not found"}`)
	}))
	defer server.Close()

	c := NewClient("bot-token")
	c.baseURL = server.URL

	if err := c.Send(context.Background(), "12345", "digest", true); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestSendRejectsMissingChatID(t *testing.T) {
	c := NewClient("bot-token")
	if err := c.Send(context.Background(), "", "digest", true); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}
