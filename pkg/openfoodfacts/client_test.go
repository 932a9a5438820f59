package openfoodfacts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethicalfinder/esg-api/internal/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{UserAgent: "test/1.0"}, WithBaseURL(ts.URL))
}

func TestGetByCode(t *testing.T) {
	var gotPath, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"product":{"code":"4006381333931","product_name":"Stabilo Boss","brands":"Stabilo, Schwan","categories":"Stationery","last_modified_t":1700000000}}`)
	})

	p, err := c.GetByCode(context.Background(), "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, "/product/4006381333931.json", gotPath)
	assert.Equal(t, "test/1.0", gotUA)
	assert.Equal(t, "4006381333931", p.Code)
	assert.Equal(t, "Stabilo Boss", p.ProductName)
	assert.Equal(t, "1700000000", p.LastModified())
}

func TestGetByCode_MissingProductBody(t *testing.T) {
	// A 200 with no product payload still means not found.
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":0}`)
	})

	_, err := c.GetByCode(context.Background(), "000000000000")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetByCode_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   apperr.Kind
	}{
		{http.StatusNotFound, apperr.KindNotFound},
		{http.StatusTooManyRequests, apperr.KindRateLimited},
		{http.StatusInternalServerError, apperr.KindExternalService},
		{http.StatusBadGateway, apperr.KindExternalService},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.GetByCode(context.Background(), "123")
		require.Error(t, err, "status %d", tc.status)
		assert.True(t, apperr.Is(err, tc.kind), "status %d", tc.status)
	}
}

func TestSearchByText(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_terms")
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{"products":[{"code":"111","product_name":"First"},{"code":"222","product_name":"Second"}]}`)
	})

	products, err := c.SearchByText(context.Background(), "dark chocolate")
	require.NoError(t, err)
	assert.Equal(t, "dark chocolate", gotQuery)
	require.Len(t, products, 2)
	assert.Equal(t, "First", products[0].ProductName)
}

func TestSearchByText_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"products":[]}`)
	})

	_, err := c.SearchByText(context.Background(), "nothing matches")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStagingAuth(t *testing.T) {
	var user, pass string
	var ok bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
		fmt.Fprint(w, `{"product":{"code":"1"}}`)
	}))
	defer ts.Close()

	c := NewClient(Config{Env: "staging"}, WithBaseURL(ts.URL))
	_, err := c.GetByCode(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "off", user)
	assert.Equal(t, "off", pass)
}

func TestLastModified_StringValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"product":{"code":"1","last_modified_t":"2024-01-01"}}`)
	})

	p, err := c.GetByCode(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", p.LastModified())
}
