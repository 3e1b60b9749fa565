package handler_test

import (
	"net/http"
	"testing"

	"github.com/makeasinger/studio/internal/storage"
)

func seedTrack(t *testing.T, ta *testApp, tr *storage.Track) *storage.Track {
	t.Helper()
	if err := ta.store.SetTrack(testContext(t), tr); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}
	return tr
}

func TestTracksList(t *testing.T) {
	ta := setupApp(t, appOptions{})
	seedTrack(t, ta, &storage.Track{JobID: "job-a", Title: "A"})
	seedTrack(t, ta, &storage.Track{JobID: "job-b", Title: "B"})

	resp := doAuthRequest(t, ta.app, http.MethodGet, "/api/tracks?jobId=job-b", "")
	assertStatus(t, resp, http.StatusOK)
	tracks, _ := parseJSON(t, resp)["tracks"].([]interface{})
	if len(tracks) != 1 || tracks[0].(map[string]interface{})["title"] != "B" {
		t.Errorf("tracks = %v", tracks)
	}
}

func TestTracksGet(t *testing.T) {
	ta := setupApp(t, appOptions{})
	tr := seedTrack(t, ta, &storage.Track{JobID: "job-a", Title: "A", AudioURL: "https://cdn/a.mp3", CoverKey: "secret"})

	resp := doAuthRequest(t, ta.app, http.MethodGet, "/api/tracks/"+tr.ID, "")
	assertStatus(t, resp, http.StatusOK)
	got := parseJSON(t, resp)
	if got["id"] != tr.ID || got["audioUrl"] != "https://cdn/a.mp3" {
		t.Errorf("track = %v", got)
	}
	if _, leaked := got["coverKey"]; leaked {
		t.Error("cover key should not be exposed")
	}

	resp = doAuthRequest(t, ta.app, http.MethodGet, "/api/tracks/missing", "")
	assertStatus(t, resp, http.StatusNotFound)
}

func TestTracksLyrics_UnknownTaskReturnsPlainLyrics(t *testing.T) {
	ta := setupApp(t, appOptions{})
	tr := seedTrack(t, ta, &storage.Track{JobID: "j", ProviderTaskID: "unknown", ProviderClipID: "c", Lyrics: "one two"})

	resp := doAuthRequest(t, ta.app, http.MethodGet, "/api/tracks/"+tr.ID+"/lyrics", "")
	assertStatus(t, resp, http.StatusOK)
	got := parseJSON(t, resp)
	words, _ := got["words"].([]interface{})
	if got["lyrics"] != "one two" || len(words) != 0 {
		t.Errorf("lyrics = %v", got)
	}
}

func TestTracksApplyCover(t *testing.T) {
	ta := setupApp(t, appOptions{})
	tr := seedTrack(t, ta, &storage.Track{JobID: "j"})

	resp := doAuthRequest(t, ta.app, http.MethodPut, "/api/tracks/"+tr.ID+"/cover", `{"imageUrl":"https://img.example.com/c.png"}`)
	assertStatus(t, resp, http.StatusOK)
	if got := parseJSON(t, resp)["imageUrl"]; got != "https://img.example.com/c.png" {
		t.Errorf("imageUrl = %v", got)
	}

	resp = doAuthRequest(t, ta.app, http.MethodPut, "/api/tracks/"+tr.ID+"/cover", `{"imageUrl":"not a url"}`)
	assertStatus(t, resp, http.StatusBadRequest)

	resp = doAuthRequest(t, ta.app, http.MethodPut, "/api/tracks/missing/cover", `{"imageUrl":"https://img.example.com/c.png"}`)
	assertStatus(t, resp, http.StatusNotFound)
}

func TestTracksDelete(t *testing.T) {
	ta := setupApp(t, appOptions{})
	tr := seedTrack(t, ta, &storage.Track{JobID: "j"})

	resp := doAuthRequest(t, ta.app, http.MethodDelete, "/api/tracks/"+tr.ID, "")
	assertStatus(t, resp, http.StatusNoContent)

	resp = doAuthRequest(t, ta.app, http.MethodGet, "/api/tracks/"+tr.ID, "")
	assertStatus(t, resp, http.StatusNotFound)

	resp = doAuthRequest(t, ta.app, http.MethodDelete, "/api/tracks/"+tr.ID, "")
	assertStatus(t, resp, http.StatusNotFound)
}
