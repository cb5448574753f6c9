package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/xmarc/internal/shared"
	xmarctest "github.com/desertthunder/xmarc/internal/testing"
)

func TestXMPlaylistService(t *testing.T) {
	t.Run("RecentTracks", func(t *testing.T) {
		t.Run("Reverses Into Broadcast Order", func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/station/1stwave" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				fmt.Fprint(w, `{"tracks":[
					{"song":"Newest","artist":"C"},
					{"song":"Middle","artist":"B","spotify":"https://open.spotify.com/track/mid"},
					{"song":"Oldest","artist":"A"}
				]}`)
			}))
			t.Cleanup(ts.Close)

			svc := NewXMPlaylistService(ts.URL, "1stwave", nil)

			tracks, err := svc.RecentTracks(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(tracks) != 3 {
				t.Fatalf("expected 3 tracks, got %d", len(tracks))
			}
			if tracks[0].Title != "Oldest" || tracks[2].Title != "Newest" {
				t.Errorf("expected oldest-to-newest order, got %v", tracks)
			}
			if tracks[1].SpotifyURL != "https://open.spotify.com/track/mid" {
				t.Errorf("cross-reference link lost: %v", tracks[1])
			}
		})

		t.Run("Drops Incomplete Items", func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"tracks":[
					{"song":"Kept","artist":"Band"},
					{"song":"","artist":"No Title"},
					{"song":"No Artist","artist":"  "}
				]}`)
			}))
			t.Cleanup(ts.Close)

			svc := NewXMPlaylistService(ts.URL, "1stwave", nil)

			tracks, err := svc.RecentTracks(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].Title != "Kept" {
				t.Errorf("expected only the complete item, got %v", tracks)
			}
		})

		t.Run("Transport Error", func(t *testing.T) {
			client := &http.Client{
				Transport: xmarctest.NewMockRoundTripper(nil, errors.New("connection refused")),
			}
			svc := NewXMPlaylistService("http://feed.invalid", "1stwave", client)

			_, err := svc.RecentTracks(context.Background())
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Upstream Error", func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			t.Cleanup(ts.Close)

			svc := NewXMPlaylistService(ts.URL, "1stwave", nil)

			_, err := svc.RecentTracks(context.Background())
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("Defaults", func(t *testing.T) {
		svc := NewXMPlaylistService("", "1stwave", nil)
		if svc.baseURL != xmplaylistBaseURL {
			t.Errorf("expected public API base URL, got %s", svc.baseURL)
		}
		if svc.Name() != "XMPlaylist" {
			t.Errorf("unexpected name %s", svc.Name())
		}
	})
}
