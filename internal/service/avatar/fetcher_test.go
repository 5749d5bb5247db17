package avatar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFetcher(serverURL string) *HTTPFetcher {
	return NewHTTPFetcher(FetcherConfig{
		Timeout:     2 * time.Second,
		QQURLFormat: serverURL + "/headimg_dl?dst_uin=%s&spec=640&img_type=jpg",
	}, zap.NewNop())
}

func TestFetchQQAvatar(t *testing.T) {
	var gotUIN string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUIN = r.URL.Query().Get("dst_uin")
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	data, ok := newTestFetcher(server.URL).Fetch(context.Background(), "10001", "qq")

	require.True(t, ok)
	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Equal(t, "10001", gotUIN)
}

func TestFetchNon200ReturnsNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	data, ok := newTestFetcher(server.URL).Fetch(context.Background(), "10001", "QQ")
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestFetchEmptyBodyReturnsNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, ok := newTestFetcher(server.URL).Fetch(context.Background(), "10001", "qq")
	assert.False(t, ok)
}

func TestFetchOversizedAvatarReturnsNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(FetcherConfig{
		QQURLFormat: server.URL + "/headimg_dl?dst_uin=%s",
		MaxBytes:    9,
	}, zap.NewNop())
	data, ok := fetcher.Fetch(context.Background(), "10001", "qq")
	assert.False(t, ok)
	assert.Nil(t, data)

	fetcher = NewHTTPFetcher(FetcherConfig{
		QQURLFormat: server.URL + "/headimg_dl?dst_uin=%s",
		MaxBytes:    10,
	}, zap.NewNop())
	data, ok = fetcher.Fetch(context.Background(), "10001", "qq")
	require.True(t, ok)
	assert.Equal(t, []byte("0123456789"), data)
}

func TestFetchNetworkErrorReturnsNone(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	_, ok := newTestFetcher(serverURL).Fetch(context.Background(), "10001", "qq")
	assert.False(t, ok)
}

func TestFetchUnsupportedPlatforms(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL)
	for _, platform := range []string{"discord", "telegram", ""} {
		data, ok := fetcher.Fetch(context.Background(), "10001", platform)
		assert.False(t, ok, platform)
		assert.Nil(t, data, platform)
	}
	assert.Equal(t, 0, hits)
}

func TestAvatarURL(t *testing.T) {
	fetcher := NewHTTPFetcher(FetcherConfig{}, zap.NewNop())

	u, ok := fetcher.AvatarURL("42", "qq")
	require.True(t, ok)
	assert.Equal(t, "http://q.qlogo.cn/headimg_dl?dst_uin=42&spec=640&img_type=jpg", u)

	_, ok = fetcher.AvatarURL("42", "discord")
	assert.False(t, ok)
}
