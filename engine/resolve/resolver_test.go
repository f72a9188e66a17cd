package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rae1st/oscillate/engine"
)

func testTrack(t *testing.T, url string) *engine.Track {
	t.Helper()
	track, err := engine.NewTrack(engine.Track{Title: "t", AudioURL: url})
	if err != nil {
		t.Fatalf("new track: %v", err)
	}
	return track
}

func TestResolveFollowsRedirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/audio.webm", http.StatusFound)
	}))
	defer redirecting.Close()

	r := New(2*time.Second, 0, nil)
	url, err := r.Resolve(context.Background(), testTrack(t, redirecting.URL))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if url != final.URL+"/audio.webm" {
		t.Fatalf("expected final url, got %s", url)
	}
}

func TestResolveRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New(2*time.Second, 2, nil)
	if _, err := r.Resolve(context.Background(), testTrack(t, srv.URL)); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestResolveExpiredURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := New(2*time.Second, 0, nil)
	if _, err := r.Resolve(context.Background(), testTrack(t, srv.URL)); err == nil {
		t.Fatal("expected error for forbidden url")
	}
}

func TestResolveMissingURL(t *testing.T) {
	r := New(time.Second, 0, nil)
	if _, err := r.Resolve(context.Background(), nil); !errors.Is(err, engine.ErrNoAudioURL) {
		t.Fatalf("expected ErrNoAudioURL, got %v", err)
	}
}
