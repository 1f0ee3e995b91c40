package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{APIBase: server.URL, PageID: "page-1", PageToken: "page-token", HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresPageCredentials(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{PageID: "page-1"}); err == nil {
		t.Fatal("expected error without page token")
	}
}

func TestPublishPostsToPageFeed(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/page-1/feed" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["message"] != "hello" || body["access_token"] != "page-token" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"id":"page-1_post-9"}`))
	})

	postID, err := client.Publish(context.Background(), "hello")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if postID != "page-1_post-9" {
		t.Fatalf("post id = %q", postID)
	}
}

func TestPublishReportsGraphErrors(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	})

	_, err := client.Publish(context.Background(), "hello")
	if apperrors.CodeOf(err) != apperrors.CodeExternalServiceFailed {
		t.Fatalf("err = %v, want external service failure", err)
	}
	if !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Fatalf("err = %v, want graph message", err)
	}
}

func TestDeleteRequiresSuccessFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "acknowledged", body: `{"success":true}`},
		{name: "not acknowledged", body: `{"success":false}`, wantErr: true},
		{name: "missing flag", body: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/page-1_post-9" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				if got := r.URL.Query().Get("access_token"); got != "page-token" {
					t.Errorf("access_token = %q", got)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			err := client.Delete(context.Background(), "page-1_post-9")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeleteErrorDoesNotLeakToken(t *testing.T) {
	t.Parallel()
	client, err := New(Config{APIBase: "http://127.0.0.1:1", PageID: "page-1", PageToken: "secret-page-token"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = client.Delete(context.Background(), "post-1")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-page-token") {
		t.Fatalf("error leaks token: %v", err)
	}
}
