package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *ShopifyClient {
	return NewShopifyClientFromValues(serverURL, "test-token", "2024-07")
}

func TestFindVariantsBySKU(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-07/graphql.json", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))

		var payload struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "sku:ZM101S", payload.Variables["q"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"productVariants":{"edges":[
			{"node":{"id":"gid://shopify/ProductVariant/111","sku":"ZM101S","product":{"id":"gid://shopify/Product/222"}}}
		]}}}`))
	}))
	defer srv.Close()

	variants, err := testClient(srv.URL).FindVariantsBySKU(context.Background(), "ZM101S")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, int64(111), variants[0].ID)
	assert.Equal(t, int64(222), variants[0].ProductID)
	assert.Equal(t, "ZM101S", variants[0].SKU)
}

func TestDoJSONRetriesRateLimit(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) <= 2 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"images":[]}`))
	}))
	defer srv.Close()

	imgs, err := testClient(srv.URL).GetProductImages(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, imgs)
	assert.Equal(t, int64(3), atomic.LoadInt64(&hits))
}

func TestDoJSONGivesUpAfterMaxAttempts(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Retry-After", "0.01")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetProductImages(context.Background(), 42)
	require.Error(t, err)
	var callErr *ExternalCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusTooManyRequests, callErr.StatusCode)
	assert.Equal(t, int64(maxRetryAttempts), atomic.LoadInt64(&hits))
}

func TestGraphqlErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"query malformed"}]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FindVariantsBySKU(context.Background(), "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query malformed")
}

func TestUploadProductImagePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-07/products/42/images.json", r.URL.Path)
		var payload struct {
			Image map[string]interface{} `json:"image"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "front.jpg", payload.Image["filename"])
		assert.Equal(t, "abc123", payload.Image["attachment"])
		assert.Equal(t, "Floral Dress", payload.Image["alt"])
		assert.Equal(t, []interface{}{float64(7)}, payload.Image["variant_ids"])

		w.Write([]byte(`{"image":{"id":99,"src":"https://cdn/img.jpg"}}`))
	}))
	defer srv.Close()

	img, err := testClient(srv.URL).UploadProductImage(context.Background(), 42, ImageAttachment{
		Attachment: "abc123",
		Filename:   "front.jpg",
		Alt:        "Floral Dress",
		VariantIDs: []int64{7},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), img.ID)
}

func TestGidToInt(t *testing.T) {
	assert.Equal(t, int64(123), gidToInt("gid://shopify/Product/123"))
	assert.Equal(t, int64(0), gidToInt("not-a-gid"))
}
