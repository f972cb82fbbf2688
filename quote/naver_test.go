package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePollingResponse = `{
  "resultCode": "success",
  "result": {
    "areas": [
      {
        "datas": [
          {"cd": "005930", "nm": "삼성전자", "nv": 71500, "pc": 70800, "cv": 700, "cr": 0.99}
        ]
      }
    ]
  }
}`

func TestNaverFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SERVICE_ITEM:005930", r.URL.Query().Get("query"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, samplePollingResponse)
	}))
	defer srv.Close()

	c := NewNaverClient(srv.URL, time.Second)
	q, err := c.Fetch(context.Background(), "005930")
	require.NoError(t, err)

	assert.Equal(t, "005930", q.Symbol)
	assert.Equal(t, "삼성전자", q.Name)
	assert.Equal(t, int64(71500), q.Price)
	assert.Equal(t, int64(700), q.Change)
	assert.InDelta(t, 0.99, q.ChangePct, 0.001)
	assert.WithinDuration(t, time.Now(), q.AsOf, time.Minute)
	assert.False(t, q.Stale)
}

func TestNaverFetchDerivesChangeFromPrevClose(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"areas":[{"datas":[{"cd":"000660","nm":"SK","nv":120000,"pc":118000,"cv":0,"cr":0}]}]}}`)
	}))
	defer srv.Close()

	c := NewNaverClient(srv.URL, time.Second)
	q, err := c.Fetch(context.Background(), "000660")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), q.Change)
}

func TestNaverFetchUnknownSymbol(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"areas":[{"datas":[]}]}}`)
	}))
	defer srv.Close()

	c := NewNaverClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), "999999")
	assert.Error(t, err)
}

func TestNaverFetchBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewNaverClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), "005930")
	assert.ErrorContains(t, err, "status 403")
}

func TestNaverFetchBadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>blocked</html>`)
	}))
	defer srv.Close()

	c := NewNaverClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), "005930")
	assert.Error(t, err)
}
