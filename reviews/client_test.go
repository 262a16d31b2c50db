package reviews_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/internal/log"
	"github.com/mickael31/location-benne-occitanie/reviews"
)

func newClient(t *testing.T, h http.HandlerFunc) *reviews.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return reviews.NewClient(reviews.WithBaseURL(srv.URL+"/v4"), reviews.WithLogger(log.Discard()))
}

func TestListAccountsPaginates(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v4/accounts", r.URL.Path)
		assert.Equal(t, "Bearer ya29.token", r.Header.Get("Authorization"))
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"accounts":      []map[string]string{{"name": "accounts/1", "accountName": "Benne"}},
				"nextPageToken": "p2",
			})
		case "p2":
			json.NewEncoder(w).Encode(map[string]any{
				"accounts": []map[string]string{{"name": "accounts/2"}},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	accounts, err := client.ListAccounts(t.Context(), "ya29.token")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "accounts/1", accounts[0].Name)
	assert.Equal(t, "Benne", accounts[0].AccountName)
	assert.Equal(t, "accounts/2", accounts[1].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListStopsAtPageCeiling(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"accounts":      []map[string]string{{"name": fmt.Sprintf("accounts/%d", n)}},
			"nextPageToken": "next-" + strconv.Itoa(int(n)),
		})
	})

	accounts, err := client.ListAccounts(t.Context(), "ya29.token")
	require.NoError(t, err)
	assert.Len(t, accounts, 5)
	assert.Equal(t, int32(5), calls.Load())
}

func TestListLocationsAndReviewsPaths(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		sizes []string
	)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		sizes = append(sizes, r.URL.Query().Get("pageSize"))
		mu.Unlock()
		switch {
		case r.URL.Path == "/v4/accounts/123/locations":
			json.NewEncoder(w).Encode(map[string]any{
				"locations": []map[string]string{{"name": "accounts/123/locations/456", "locationName": "Montauban"}},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"reviews": []map[string]any{{"comment": "Top", "starRating": "FIVE", "reviewer": map[string]string{"displayName": "A"}}},
			})
		}
	})

	locations, err := client.ListLocations(t.Context(), "ya29.token", "123")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Montauban", locations[0].LocationName)

	list, err := client.ListReviews(t.Context(), "ya29.token", "123/locations/456")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "FIVE", list[0].StarRating)

	_, err = client.ListReviews(t.Context(), "ya29.token", "accounts/123/locations/456")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/v4/accounts/123/locations",
		"/v4/accounts/123/locations/456/reviews",
		"/v4/accounts/123/locations/456/reviews",
	}, paths)
	assert.Equal(t, []string{"100", "50", "50"}, sizes)
}

func TestListRequiresNames(t *testing.T) {
	client := reviews.NewClient(reviews.WithLogger(log.Discard()))

	_, err := client.ListLocations(t.Context(), "tok", " ")
	assert.ErrorIs(t, err, reviews.ErrAccountRequired)
	_, err = client.ListReviews(t.Context(), "tok", "")
	assert.ErrorIs(t, err, reviews.ErrLocationRequired)
}

func TestAPIErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "nested", body: `{"error":{"code":403,"message":"The caller does not have permission"}}`, want: "Google API error (403): The caller does not have permission"},
		{name: "flat", body: `{"message":"quota"}`, want: "Google API error (403): quota"},
		{name: "not json", body: `<html>`, want: "Google API error (403)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(tt.body))
			})

			_, err := client.ListAccounts(t.Context(), "ya29.token")
			var apiErr *reviews.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusForbidden, apiErr.Status)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestAccountName(t *testing.T) {
	assert.Equal(t, "accounts/123", reviews.AccountName("123"))
	assert.Equal(t, "accounts/123", reviews.AccountName("accounts/123"))
	assert.Equal(t, "accounts/123/locations/4", reviews.AccountName(" /accounts/123/locations/4/ "))
}
