package itch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"itcharchive/internal/itchtest"
	"itcharchive/pkg/config"
	"itcharchive/pkg/errors"
	"itcharchive/pkg/logger"
)

func newTestClient(t *testing.T, srv *itchtest.Server) (*Client, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	return NewClient(srv.Config(t.TempDir()), log), log
}

func TestClientCreatorURL(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "https://some-dev.itch.io", NewClient(cfg, logger.NewNopLogger()).CreatorURL("some-dev"))

	cfg.Itch.BaseURL = "http://127.0.0.1:8080/" + config.CreatorPlaceholder
	assert.Equal(t, "http://127.0.0.1:8080/other", NewClient(cfg, logger.NewNopLogger()).CreatorURL("other"))
}

func TestListProjects(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.AddCreator("some-dev",
		itchtest.Project{Slug: "one", Title: "One"},
		itchtest.Project{Slug: "two", Title: "Two"},
	)

	client, _ := newTestClient(t, srv)
	urls, err := client.ListProjects(context.Background(), " Some-Dev ")
	require.NoError(t, err)

	assert.Equal(t, []string{
		srv.ProjectURL("some-dev", "one"),
		srv.ProjectURL("some-dev", "two"),
	}, urls)
}

func TestListProjectsPagination(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.PageSize = 2
	srv.AddCreator("paged",
		itchtest.Project{Slug: "a"},
		itchtest.Project{Slug: "b"},
		itchtest.Project{Slug: "c"},
		itchtest.Project{Slug: "d"},
		itchtest.Project{Slug: "e"},
	)

	client, _ := newTestClient(t, srv)
	urls, err := client.ListProjects(context.Background(), "paged")
	require.NoError(t, err)

	assert.Len(t, urls, 5)
	assert.Equal(t, srv.ProjectURL("paged", "e"), urls[4])
	assert.Equal(t, 3, srv.Hits("/paged"), "three listing pages")
}

func TestListProjectsMaxPages(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.PageSize = 1
	srv.AddCreator("many", itchtest.Project{Slug: "a"}, itchtest.Project{Slug: "b"}, itchtest.Project{Slug: "c"})

	cfg := srv.Config(t.TempDir())
	cfg.Itch.MaxPages = 2
	client := NewClient(cfg, logger.NewNopLogger())

	urls, err := client.ListProjects(context.Background(), "many")
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestListProjectsEmptyCreator(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.AddCreator("quiet")

	client, _ := newTestClient(t, srv)
	urls, err := client.ListProjects(context.Background(), "quiet")
	require.NoError(t, err)
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestListProjectsErrors(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.SetStatus("/broken", http.StatusServiceUnavailable)

	client, _ := newTestClient(t, srv)

	t.Run("unknown creator", func(t *testing.T) {
		_, err := client.ListProjects(context.Background(), "nobody")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("invalid creator", func(t *testing.T) {
		_, err := client.ListProjects(context.Background(), "../etc")
		require.Error(t, err)
		assert.True(t, errors.IsInvalidInput(err))
		assert.Equal(t, 0, srv.Hits("/etc"))
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.ListProjects(context.Background(), "broken")
		require.Error(t, err)
		assert.True(t, errors.IsFetch(err))

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, http.StatusServiceUnavailable, e.Code)
	})
}

func TestFetchProject(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.AddCreator("some-dev",
		itchtest.Project{Slug: "game", Title: "Game", Price: "$2", Cover: "c.png", Screenshots: []string{"s.jpg"}},
		itchtest.Project{Slug: "gone", Status: http.StatusNotFound},
	)

	client, _ := newTestClient(t, srv)

	p, err := client.FetchProject(context.Background(), srv.ProjectURL("some-dev", "game"))
	require.NoError(t, err)
	assert.Equal(t, "Game", p.Title)
	assert.Equal(t, "$2", p.Price)
	require.NotNil(t, p.Cover)
	assert.Equal(t, srv.ImageURL("c.png"), p.Cover.SourceURL)
	require.Len(t, p.Screenshots, 1)

	_, err = client.FetchProject(context.Background(), srv.ProjectURL("some-dev", "gone"))
	assert.True(t, errors.IsNotFound(err))
}

func TestFetchProjectRejectsNonHTML(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.AddImage("not-a-page", []byte{0x89, 'P', 'N', 'G'})

	client, _ := newTestClient(t, srv)
	_, err := client.FetchProject(context.Background(), srv.ImageURL("not-a-page"))
	assert.True(t, errors.IsParse(err))
}

func TestFetchAsset(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.AddImage("cover.png", []byte("png-bytes"))
	srv.AddImage("huge.png", make([]byte, 2048))
	srv.SetStatus("/img/flaky.png", http.StatusBadGateway)

	cfg := srv.Config(t.TempDir())
	cfg.Download.MaxAssetSize = 1024
	log := logger.NewTestLogger()
	client := NewClient(cfg, log)
	ctx := context.Background()

	data, err := client.FetchAsset(ctx, srv.ImageURL("cover.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	_, err = client.FetchAsset(ctx, srv.ImageURL("missing.png"))
	assert.True(t, errors.IsFetch(err), "missing asset is a fetch error, not NotFound")

	_, err = client.FetchAsset(ctx, srv.ImageURL("flaky.png"))
	assert.True(t, errors.IsFetch(err))
	assert.NotEmpty(t, log.GetMessagesByLevel("ERROR"), "5xx is logged at error level")

	_, err = client.FetchAsset(ctx, srv.ImageURL("huge.png"))
	assert.True(t, errors.IsFetch(err))
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestRequestHeadersAndTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "itcharchive")
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.Write([]byte("ok"))
	}))
	defer slow.Close()

	srv := itchtest.NewServer()
	defer srv.Close()
	cfg := srv.Config(t.TempDir())
	cfg.HTTP.Timeout = 50 * time.Millisecond
	client := NewClient(cfg, logger.NewNopLogger())

	data, err := client.FetchAsset(context.Background(), slow.URL+"/fast")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))

	_, err = client.FetchAsset(context.Background(), slow.URL+"/slow")
	require.Error(t, err)
	assert.True(t, errors.IsFetch(err), "timeout skips the item as a fetch error")
}

func TestRequestCanceled(t *testing.T) {
	srv := itchtest.NewServer()
	defer srv.Close()
	srv.AddImage("a.png", []byte("a"))

	client, _ := newTestClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchAsset(ctx, srv.ImageURL("a.png"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeCanceled, errors.TypeOf(err))
}
