package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/xylax/motion-agent/internal/db"
	"github.com/xylax/motion-agent/internal/editor"
	"github.com/xylax/motion-agent/internal/gen"
	"github.com/xylax/motion-agent/internal/logging"
	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/playback"
	"github.com/xylax/motion-agent/internal/probe"
	"github.com/xylax/motion-agent/internal/project"
	"github.com/xylax/motion-agent/internal/stream"
	"github.com/xylax/motion-agent/internal/studio"
	"github.com/xylax/motion-agent/internal/timeline"
)

const testToken = "test-token"

type testEnv struct {
	server   *httptest.Server
	registry *media.Registry
	session  *editor.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.NewLogger("error")
	mediaDir := t.TempDir()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := project.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("failed to store auth token: %v", err)
	}

	registry := media.NewRegistry(probe.NewStubProber(nil), logger)
	t.Cleanup(registry.Close)

	tl := timeline.New(5, 3, 60)
	surface := playback.NewClockSurface()
	controller := playback.NewController(surface, tl, func(id string) (string, bool) {
		if item := registry.Get(id); item != nil {
			return item.Path, true
		}
		return "", false
	}, 30, logger)
	t.Cleanup(controller.Close)

	session := editor.NewSession(registry, tl, controller)
	composer := studio.NewComposer(gen.NewStubClient(mediaDir, logger), registry, repo, mediaDir, logger)

	router := NewRouter(ServerConfig{
		Port:            0,
		MediaDir:        mediaDir,
		RulerGutterPx:   48,
		PixelsPerSecond: 60,
		Session:         session,
		Composer:        composer,
		Projects:        project.NewService(repo, logger),
		Repository:      repo,
		StreamServer:    stream.NewServer(registry, logger),
		Logger:          logger,
		StartTime:       time.Now(),
		InstallID:       "test-install",
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, registry: registry, session: session}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

// addMedia registers an item directly. The stub prober leaves duration 0
// and no audio stream, which is what tests without ffmpeg get.
func (e *testEnv) addMedia(t *testing.T, name string) string {
	t.Helper()
	item := e.registry.AddUpload(name, "/tmp/"+name)
	e.registry.WaitProbes()
	return item.ID
}

func TestHealthNoAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	health := decode[HealthResponse](t, resp)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.InstallID != "test-install" {
		t.Errorf("install_id = %q", health.InstallID)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestUploadAndListMedia(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "holiday.mp4")
	if err != nil {
		t.Fatalf("failed to build form: %v", err)
	}
	fw.Write([]byte("fake video bytes"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/media", &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}
	uploaded := decode[MediaResponse](t, resp)
	if uploaded.Name != "holiday.mp4" {
		t.Errorf("name = %q", uploaded.Name)
	}

	listResp := env.do(t, http.MethodGet, "/media", nil)
	list := decode[MediaListResponse](t, listResp)
	if len(list.Media) != 1 || list.Media[0].ID != uploaded.ID {
		t.Errorf("listing = %+v", list)
	}

	getResp := env.do(t, http.MethodGet, "/media/"+uploaded.ID, nil)
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", getResp.StatusCode)
	}
	getResp.Body.Close()

	missing := env.do(t, http.MethodGet, "/media/nope", nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing media status = %d, want 404", missing.StatusCode)
	}
	missing.Body.Close()
}

func TestPlaceClipViaAPI(t *testing.T) {
	env := newTestEnv(t)
	id := env.addMedia(t, "clip.mp4")

	resp := env.do(t, http.MethodPost, "/timeline/clips", PlaceClipRequest{
		MediaID: id,
		TrackID: "v-track-1",
		DropXPx: 120,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place status = %d, want 201", resp.StatusCode)
	}
	clip := decode[timeline.Clip](t, resp)
	if clip.StartOffset != 2.0 {
		t.Errorf("StartOffset = %v, want 2.0 (120px at 60 px/s)", clip.StartOffset)
	}

	unknownTrack := env.do(t, http.MethodPost, "/timeline/clips", PlaceClipRequest{
		MediaID: id, TrackID: "v-track-99",
	})
	if unknownTrack.StatusCode != http.StatusNotFound {
		t.Errorf("unknown track status = %d, want 404", unknownTrack.StatusCode)
	}
	unknownTrack.Body.Close()

	unknownMedia := env.do(t, http.MethodPost, "/timeline/clips", PlaceClipRequest{
		MediaID: "ghost", TrackID: "v-track-1",
	})
	if unknownMedia.StatusCode != http.StatusNotFound {
		t.Errorf("unknown media status = %d, want 404", unknownMedia.StatusCode)
	}
	unknownMedia.Body.Close()
}

func TestAudioPlacementRejectionMessage(t *testing.T) {
	env := newTestEnv(t)
	// Stub-probed media has no audio stream.
	id := env.addMedia(t, "silent.mp4")

	resp := env.do(t, http.MethodPost, "/timeline/audio-clips", PlaceClipRequest{
		MediaID: id,
		TrackID: "a-track-1",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	errResp := decode[ErrorResponse](t, resp)
	if errResp.Error != "This media file does not contain audio." {
		t.Errorf("error message = %q", errResp.Error)
	}
}

func TestSeekByRulerClick(t *testing.T) {
	env := newTestEnv(t)
	id := env.addMedia(t, "clip.mp4")

	// A clip ending at 2.0s bounds the playhead. Stub-probed media has
	// duration 0, so the clip end equals its start offset.
	place := env.do(t, http.MethodPost, "/timeline/clips", PlaceClipRequest{
		MediaID: id, TrackID: "v-track-1", DropXPx: 120,
	})
	place.Body.Close()

	click := 180.0 // (180 - 48) / 60 = 2.2s, clamped to 2.0
	resp := env.do(t, http.MethodPost, "/playback/seek", SeekRequest{ClickXPx: &click})
	state := decode[playback.Update](t, resp)
	if state.Position != 2.0 {
		t.Errorf("position = %v, want 2.0", state.Position)
	}

	// Absolute seek also clamps at zero from below.
	neg := -4.0
	resp = env.do(t, http.MethodPost, "/playback/seek", SeekRequest{Position: &neg})
	state = decode[playback.Update](t, resp)
	if state.Position != 0 {
		t.Errorf("position = %v, want 0", state.Position)
	}
}

func TestPlayOnEmptyTimelineIsNoOp(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/playback/play", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	state := decode[playback.Update](t, resp)
	if state.Playing {
		t.Error("controller reported playing with nothing to play")
	}
}

func TestStudioScenesAndProjects(t *testing.T) {
	env := newTestEnv(t)

	meta := env.do(t, http.MethodPut, "/studio/meta", MetaRequest{
		ProjectName: "Epic Tale",
		AspectRatio: "16:9",
		Tags:        []string{"fantasy"},
	})
	meta.Body.Close()

	created := env.do(t, http.MethodPost, "/studio/scenes", SceneRequest{
		Prompt: "a castle at dawn", NegativePrompt: "blurry",
	})
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("add scene status = %d", created.StatusCode)
	}
	scene := decode[studio.Scene](t, created)

	saved := env.do(t, http.MethodPost, "/projects", nil)
	if saved.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", saved.StatusCode)
	}
	saved.Body.Close()

	loaded := env.do(t, http.MethodGet, "/projects/"+url.PathEscape("Epic Tale"), nil)
	record := decode[project.Record](t, loaded)
	if record.ProjectName != "Epic Tale" || len(record.Scenes) != 1 || record.Scenes[0].ID != scene.ID {
		t.Errorf("loaded record = %+v", record)
	}

	filtered := env.do(t, http.MethodGet, "/projects?filter=fantasy", nil)
	listing := decode[ProjectListResponse](t, filtered)
	if len(listing.Projects) != 1 {
		t.Errorf("filtered listing has %d projects, want 1", len(listing.Projects))
	}

	missing := env.do(t, http.MethodGet, "/projects/never-saved", nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing project status = %d, want 404", missing.StatusCode)
	}
	missing.Body.Close()
}

func TestExportEmptyTimeline(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/export/edl", ExportRequest{Title: "Nothing"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an empty timeline", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestKeyUnknown(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/timeline/key", KeyRequest{Key: "q"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	noSelection := env.do(t, http.MethodPost, "/timeline/key", KeyRequest{Key: "delete"})
	if noSelection.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 with no selection", noSelection.StatusCode)
	}
	noSelection.Body.Close()
}
