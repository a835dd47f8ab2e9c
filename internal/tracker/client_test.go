package tracker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func TestHTTPIngestionClient(t *testing.T) {
	var lastPath string
	var lastBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		lastBody = map[string]interface{}{}
		_ = json.Unmarshal(raw, &lastBody)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/newsletter/signup":
			_, _ = w.Write([]byte(`{"success":true,"message":"ok","alreadySubscribed":true}`))
		case "/api/track/event":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"subscriber not found"}`))
		default:
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}))
	defer srv.Close()

	client := NewHTTPIngestionClient(srv.URL+"/", nil)
	ctx := context.Background()

	resp, err := client.Signup(ctx, SignupRequest{Email: "a@example.com", FirstName: "A", SessionID: "s", BehavioralData: []Entry{}})
	if err != nil || !resp.Success || !resp.AlreadySubscribed {
		t.Fatalf("unexpected signup response: %+v %v", resp, err)
	}
	if lastPath != "/api/newsletter/signup" || lastBody["firstName"] != "A" || lastBody["sessionId"] != "s" {
		t.Fatalf("unexpected signup request: %s %v", lastPath, lastBody)
	}

	err = client.TrackEvent(ctx, TrackEventRequest{Email: "a@example.com", EventType: "button_click", EventData: `{"x":1}`})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if lastBody["eventData"] != `{"x":1}` {
		t.Fatalf("event data should be a JSON string, got %v", lastBody["eventData"])
	}

	if err := client.TrackPageView(ctx, TrackPageViewRequest{Email: "a@example.com", PageURL: "/", TimeSpent: 1200}); err != nil {
		t.Fatalf("page view failed: %v", err)
	}
	if lastPath != "/api/track/page-view" || lastBody["timeSpent"] != float64(1200) {
		t.Fatalf("unexpected page view request: %s %v", lastPath, lastBody)
	}
}
