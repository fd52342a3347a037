package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotPostsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/screenshot/html", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			return
		}

		file, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "index.html", header.Filename)
		html, _ := io.ReadAll(file)
		assert.Equal(t, "<p>hola</p>", string(html))

		assert.Equal(t, "1600", r.FormValue("width"))
		assert.Equal(t, "400", r.FormValue("height"))
		assert.Equal(t, "png", r.FormValue("format"))
		_, _ = w.Write([]byte("PNG"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", srv.Client())
	out, err := client.Screenshot(context.Background(), []byte("<p>hola</p>"), 1600, 400)
	require.NoError(t, err)
	assert.Equal(t, "PNG", string(out))
}

func TestScreenshotReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Screenshot(context.Background(), []byte("x"), 10, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gotenberg response 500")
	assert.Contains(t, err.Error(), "chromium crashed")
}

func TestScreenshotRequiresEndpoint(t *testing.T) {
	_, err := NewClient("", nil).Screenshot(context.Background(), []byte("x"), 10, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint required")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL, nil).Ping(context.Background()))
}
