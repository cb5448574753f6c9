package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/xmarc/internal/shared"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	}
}

// newTestSpotify builds a service pointed at a local test server, already
// authenticated with a static access token so no token endpoint is hit.
func newTestSpotify(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}

	return srv, ts
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"}, SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "c"}, SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Batch Size Clamped To API Maximum", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{BatchSize: 500})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.batchSize != spotifyMaxBatch {
				t.Errorf("expected batch size %d, got %d", spotifyMaxBatch, srv.batchSize)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Requires Authentication", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		_, err = srv.PlaylistTotal(context.Background(), "p1")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		t.Run("Fielded Query Hit", func(t *testing.T) {
			var queries []string
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				queries = append(queries, r.URL.Query().Get("q"))
				fmt.Fprint(w, `{"tracks":{"items":[{"id":"abc","name":"Song","uri":"spotify:track:abc"}]}}`)
			}))

			uri, err := srv.SearchTrack(context.Background(), "Song", "Band")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if uri != "spotify:track:abc" {
				t.Errorf("expected spotify:track:abc, got %s", uri)
			}
			if len(queries) != 1 || queries[0] != "track:Song artist:Band" {
				t.Errorf("expected one fielded query, got %v", queries)
			}
		})

		t.Run("Falls Back To Loose Query", func(t *testing.T) {
			var queries []string
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query().Get("q")
				queries = append(queries, q)
				if strings.HasPrefix(q, "track:") {
					fmt.Fprint(w, `{"tracks":{"items":[]}}`)
					return
				}
				fmt.Fprint(w, `{"tracks":{"items":[{"id":"xyz","name":"Song","uri":"spotify:track:xyz"}]}}`)
			}))

			uri, err := srv.SearchTrack(context.Background(), "Song", "Band")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if uri != "spotify:track:xyz" {
				t.Errorf("expected spotify:track:xyz, got %s", uri)
			}
			if len(queries) != 2 || queries[1] != "Song Band" {
				t.Errorf("expected loose query fallback, got %v", queries)
			}
		})

		t.Run("Not Found After Both Queries", func(t *testing.T) {
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"tracks":{"items":[]}}`)
			}))

			_, err := srv.SearchTrack(context.Background(), "Nothing", "Nobody")
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
		})
	})

	t.Run("PlaylistTotal", func(t *testing.T) {
		t.Run("Returns Count", func(t *testing.T) {
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"tracks":{"total":42}}`)
			}))

			total, err := srv.PlaylistTotal(context.Background(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if total != 42 {
				t.Errorf("expected 42, got %d", total)
			}
		})

		t.Run("Missing Playlist", func(t *testing.T) {
			srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))

			_, err := srv.PlaylistTotal(context.Background(), "gone")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/users/owner/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if payload["name"] != "Archive — Vol. 1" {
				t.Errorf("unexpected name %v", payload["name"])
			}
			if payload["public"] != false {
				t.Errorf("expected private playlist, got %v", payload["public"])
			}

			fmt.Fprint(w, `{"id":"new_playlist"}`)
		}))

		id, err := srv.CreatePlaylist(context.Background(), "owner", "Archive — Vol. 1", "desc", false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "new_playlist" {
			t.Errorf("expected new_playlist, got %s", id)
		}
	})

	t.Run("AddTracks", func(t *testing.T) {
		t.Run("Splits Into Batches In Order", func(t *testing.T) {
			var batches [][]string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var payload struct {
					URIs []string `json:"uris"`
				}
				if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				batches = append(batches, payload.URIs)
				fmt.Fprint(w, `{"snapshot_id":"snap"}`)
			})

			ts := httptest.NewServer(handler)
			t.Cleanup(ts.Close)

			srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{BaseURL: ts.URL, BatchSize: 2})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "t"}); err != nil {
				t.Fatalf("failed to authenticate: %v", err)
			}

			uris := []string{"u1", "u2", "u3", "u4", "u5"}
			if err := srv.AddTracks(context.Background(), "p1", uris); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(batches) != 3 {
				t.Fatalf("expected 3 batches, got %d", len(batches))
			}
			if len(batches[0]) != 2 || batches[0][0] != "u1" || batches[0][1] != "u2" {
				t.Errorf("unexpected first batch %v", batches[0])
			}
			if len(batches[2]) != 1 || batches[2][0] != "u5" {
				t.Errorf("unexpected last batch %v", batches[2])
			}
		})

		t.Run("Reports Applied Count On Failure", func(t *testing.T) {
			var calls int
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls > 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `{"snapshot_id":"snap"}`)
			})

			ts := httptest.NewServer(handler)
			t.Cleanup(ts.Close)

			srv, err := NewSpotifyService(testCredentials(), SpotifyOpts{BaseURL: ts.URL, BatchSize: 2})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "t"}); err != nil {
				t.Fatalf("failed to authenticate: %v", err)
			}

			err = srv.AddTracks(context.Background(), "p1", []string{"u1", "u2", "u3"})
			if err == nil {
				t.Fatal("expected error on rejected batch")
			}
			if !strings.Contains(err.Error(), "appended 2 of 3 tracks") {
				t.Errorf("error should report applied count, got %v", err)
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"id":"listener42"}`)
		}))

		userID, err := srv.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if userID != "listener42" {
			t.Errorf("expected listener42, got %s", userID)
		}
	})
}
