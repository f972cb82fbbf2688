package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rssBody(feedTitle string, items ...[2]string) string {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>%s</title>`, feedTitle)
	for _, it := range items {
		body += fmt.Sprintf(`<item><title>%s</title><link>http://example.com/a</link><pubDate>%s</pubDate></item>`,
			it[0], it[1])
	}
	return body + `</channel></rss>`
}

func TestFetchMergesNewestFirst(t *testing.T) {
	t.Parallel()

	older := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody("Feed A",
			[2]string{"old story", "Mon, 01 Jan 2024 09:00:00 +0900"},
			[2]string{"newest story", "Wed, 03 Jan 2024 09:00:00 +0900"},
		))
	}))
	defer older.Close()

	newer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody("Feed B",
			[2]string{"middle story", "Tue, 02 Jan 2024 09:00:00 +0900"},
		))
	}))
	defer newer.Close()

	src := NewRSS([]string{older.URL, newer.URL}, 0)
	items, err := src.Fetch(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "newest story", items[0].Title)
	assert.Equal(t, "middle story", items[1].Title)
	assert.Equal(t, "old story", items[2].Title)
	assert.Equal(t, "Feed A", items[0].Source)
	assert.Equal(t, "Feed B", items[1].Source)
}

func TestFetchSubstitutesSymbolPlaceholder(t *testing.T) {
	t.Parallel()

	var gotSymbol atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol.Store(r.URL.Query().Get("code"))
		fmt.Fprint(w, rssBody("Feed"))
	}))
	defer srv.Close()

	src := NewRSS([]string{srv.URL + "?code={symbol}"}, 0)
	_, err := src.Fetch(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "005930", gotSymbol.Load())
}

func TestFetchSkipsBrokenFeed(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody("Feed",
			[2]string{"still here", "Mon, 01 Jan 2024 09:00:00 +0900"},
		))
	}))
	defer good.Close()

	src := NewRSS([]string{broken.URL, good.URL}, 0)
	items, err := src.Fetch(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "still here", items[0].Title)
}

func TestFetchCapsAtLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody("Feed",
			[2]string{"one", "Mon, 01 Jan 2024 09:00:00 +0900"},
			[2]string{"two", "Tue, 02 Jan 2024 09:00:00 +0900"},
			[2]string{"three", "Wed, 03 Jan 2024 09:00:00 +0900"},
		))
	}))
	defer srv.Close()

	src := NewRSS([]string{srv.URL}, 2)
	items, err := src.Fetch(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "three", items[0].Title)
	assert.Equal(t, "two", items[1].Title)
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, rssBody("Feed"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewRSS([]string{srv.URL}, 0)
	_, err := src.Fetch(ctx, "005930")
	assert.ErrorIs(t, err, context.Canceled)
}
