package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shopify-feed-service/internal/config"
)

const maxRetryAttempts = 5

// ShopifyClient talks to the Shopify Admin API, GraphQL for lookups and
// staged uploads, REST for image attachment. Rate-limit responses are
// retried with the server's Retry-After hint, up to maxRetryAttempts.
type ShopifyClient struct {
	store      string
	token      string
	apiVersion string
	httpClient *http.Client
}

// Variant is one product variant matched by SKU.
type Variant struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
}

// ProductVariants lists a product's variant SKUs and ids.
type ProductVariants struct {
	ProductID   int64    `json:"product_id"`
	VariantSKUs []string `json:"variant_skus"`
	VariantIDs  []int64  `json:"variant_ids"`
}

// ProductImage is a Shopify product image as returned by the REST API.
type ProductImage struct {
	ID       int64   `json:"id"`
	Src      string  `json:"src"`
	Alt      *string `json:"alt"`
	Position int     `json:"position"`
}

// StagedUploadFile describes one file for stagedUploadsCreate.
type StagedUploadFile struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// StagedTarget is one staged upload destination the browser posts to.
type StagedTarget struct {
	URL         string            `json:"url"`
	ResourceURL string            `json:"resourceUrl"`
	Parameters  map[string]string `json:"parameters"`
	Filename    string            `json:"filename"`
	MimeType    string            `json:"mimeType"`
}

// ImageAttachment is the payload for attaching one image to a product.
// Exactly one of Attachment (base64 bytes) or Src (fetchable URL) is set.
type ImageAttachment struct {
	Attachment string
	Src        string
	Filename   string
	Alt        string
	VariantIDs []int64
	Position   int
}

// NewShopifyClient creates a Shopify Admin API client from service
// config.
func NewShopifyClient(cfg *config.Config) *ShopifyClient {
	return &ShopifyClient{
		store:      cfg.ShopifyStore,
		token:      cfg.ShopifyToken,
		apiVersion: cfg.ShopifyAPIVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewShopifyClientFromValues creates a client from explicit credentials,
// e.g. the operator-saved settings instead of the environment.
func NewShopifyClientFromValues(store, token, apiVersion string) *ShopifyClient {
	if apiVersion == "" {
		apiVersion = "2024-07"
	}
	return &ShopifyClient{
		store:      store,
		token:      token,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Configured reports whether store credentials are present.
func (c *ShopifyClient) Configured() bool {
	return c.store != "" && c.token != ""
}

// origin returns the scheme-qualified store host. Plain store domains
// get https; an explicit scheme (local test servers) is kept as-is.
func (c *ShopifyClient) origin() string {
	if strings.Contains(c.store, "://") {
		return strings.TrimSuffix(c.store, "/")
	}
	return "https://" + c.store
}

func (c *ShopifyClient) baseURL() string {
	return fmt.Sprintf("%s/admin/api/%s", c.origin(), c.apiVersion)
}

// doJSON sends one JSON request with rate-limit retries. 429 responses
// honor the Retry-After header, falling back to exponential backoff
// capped at ten seconds. Returns the final response body and status.
func (c *ShopifyClient) doJSON(ctx context.Context, method, url string, payload interface{}) ([]byte, int, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("X-Shopify-Access-Token", c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "shopify-feed-service/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, 0, externalErrorf("shopify", 0, "%v", err)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, externalErrorf("shopify", resp.StatusCode, "failed to read response: %v", readErr)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return respBody, resp.StatusCode, nil
		}
		if attempt >= maxRetryAttempts {
			return respBody, resp.StatusCode, externalErrorf("shopify", resp.StatusCode, "rate limited after %d attempts", attempt)
		}

		wait := backoff
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs > 0 {
				wait = time.Duration(secs * float64(time.Second))
			}
		}
		log.Printf("[ShopifyClient] rate limited, retrying in %v (attempt %d/%d)", wait, attempt, maxRetryAttempts)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, resp.StatusCode, ctx.Err()
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
}

// graphql executes one GraphQL request and decodes data into out.
func (c *ShopifyClient) graphql(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	url := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.origin(), c.apiVersion)
	payload := map[string]interface{}{"query": query, "variables": variables}

	body, status, err := c.doJSON(ctx, "POST", url, payload)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return externalErrorf("shopify", status, "%s", truncate(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return externalErrorf("shopify", status, "malformed response: %v", err)
	}
	if len(envelope.Errors) > 0 && string(envelope.Errors) != "null" {
		return externalErrorf("shopify", status, "graphql error: %s", string(envelope.Errors))
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return externalErrorf("shopify", status, "malformed data: %v", err)
		}
	}
	return nil
}

// gidToInt extracts the numeric id from a Shopify global id like
// "gid://shopify/Product/123".
func gidToInt(gid string) int64 {
	n, err := strconv.ParseInt(gid[strings.LastIndex(gid, "/")+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func truncate(b []byte) string {
	const max = 2048
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}

// FindVariantsBySKU looks up variants matching a SKU via GraphQL.
func (c *ShopifyClient) FindVariantsBySKU(ctx context.Context, sku string) ([]Variant, error) {
	query := `query($q:String!){
 productVariants(first:50, query:$q){
  edges{ node{ id sku product{ id } } }
 }
}`
	var data struct {
		ProductVariants struct {
			Edges []struct {
				Node struct {
					ID      string `json:"id"`
					SKU     string `json:"sku"`
					Product struct {
						ID string `json:"id"`
					} `json:"product"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"productVariants"`
	}
	if err := c.graphql(ctx, query, map[string]interface{}{"q": "sku:" + sku}, &data); err != nil {
		return nil, err
	}

	var out []Variant
	for _, e := range data.ProductVariants.Edges {
		if e.Node.ID == "" || e.Node.Product.ID == "" {
			continue
		}
		out = append(out, Variant{
			ID:        gidToInt(e.Node.ID),
			ProductID: gidToInt(e.Node.Product.ID),
			SKU:       e.Node.SKU,
		})
	}
	return out, nil
}

// FetchAllProductsWithVariants pages through the whole catalog and
// returns every product with its variant SKUs and ids.
func (c *ShopifyClient) FetchAllProductsWithVariants(ctx context.Context) ([]ProductVariants, error) {
	query := `query($cursor:String){
 products(first:100, after:$cursor){
  pageInfo{ hasNextPage endCursor }
  edges{ cursor node{ id variants(first:100){ edges{ node{ id sku } } } } }
 }
}`
	var results []ProductVariants
	var cursor *string
	for {
		var data struct {
			Products struct {
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
				Edges []struct {
					Node struct {
						ID       string `json:"id"`
						Variants struct {
							Edges []struct {
								Node struct {
									ID  string `json:"id"`
									SKU string `json:"sku"`
								} `json:"node"`
							} `json:"edges"`
						} `json:"variants"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"products"`
		}
		vars := map[string]interface{}{"cursor": nil}
		if cursor != nil {
			vars["cursor"] = *cursor
		}
		if err := c.graphql(ctx, query, vars, &data); err != nil {
			return nil, err
		}
		for _, e := range data.Products.Edges {
			if e.Node.ID == "" {
				continue
			}
			pv := ProductVariants{ProductID: gidToInt(e.Node.ID)}
			for _, ve := range e.Node.Variants.Edges {
				if ve.Node.SKU != "" {
					pv.VariantSKUs = append(pv.VariantSKUs, ve.Node.SKU)
				}
				if ve.Node.ID != "" {
					pv.VariantIDs = append(pv.VariantIDs, gidToInt(ve.Node.ID))
				}
			}
			results = append(results, pv)
		}
		if !data.Products.PageInfo.HasNextPage {
			return results, nil
		}
		end := data.Products.PageInfo.EndCursor
		cursor = &end
	}
}

// StagedUploadsCreate requests direct-upload targets for the given
// files. Targets come back in input order with the parameter list
// flattened into a map for the caller.
func (c *ShopifyClient) StagedUploadsCreate(ctx context.Context, files []StagedUploadFile) ([]StagedTarget, error) {
	mutation := `mutation stagedUploadsCreate($input:[StagedUploadInput!]!){
 stagedUploadsCreate(input:$input){
  stagedTargets{ url resourceUrl parameters{ name value } }
  userErrors{ field message }
 }
}`
	inputs := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		mime := f.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		inputs = append(inputs, map[string]interface{}{
			"resource":   "IMAGE",
			"filename":   f.Filename,
			"mimeType":   mime,
			"httpMethod": "POST",
			"fileSize":   strconv.FormatInt(f.FileSize, 10),
		})
	}

	var data struct {
		StagedUploadsCreate struct {
			StagedTargets []struct {
				URL         string `json:"url"`
				ResourceURL string `json:"resourceUrl"`
				Parameters  []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"parameters"`
			} `json:"stagedTargets"`
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	if err := c.graphql(ctx, mutation, map[string]interface{}{"input": inputs}, &data); err != nil {
		return nil, err
	}
	if len(data.StagedUploadsCreate.UserErrors) > 0 {
		return nil, externalErrorf("shopify", 0, "staged upload rejected: %s", data.StagedUploadsCreate.UserErrors[0].Message)
	}

	targets := make([]StagedTarget, 0, len(data.StagedUploadsCreate.StagedTargets))
	for i, t := range data.StagedUploadsCreate.StagedTargets {
		params := make(map[string]string, len(t.Parameters))
		for _, p := range t.Parameters {
			params[p.Name] = p.Value
		}
		target := StagedTarget{
			URL:         t.URL,
			ResourceURL: t.ResourceURL,
			Parameters:  params,
		}
		if i < len(files) {
			target.Filename = files[i].Filename
			target.MimeType = files[i].MimeType
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// ShopInfo identifies the store behind the configured credentials.
type ShopInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Email  string `json:"email"`
}

// GetShopInfo fetches basic shop info, used to verify credentials.
func (c *ShopifyClient) GetShopInfo(ctx context.Context) (*ShopInfo, error) {
	url := c.baseURL() + "/shop.json"
	body, status, err := c.doJSON(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, externalErrorf("shopify", status, "%s", truncate(body))
	}
	var data struct {
		Shop ShopInfo `json:"shop"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, externalErrorf("shopify", status, "malformed response: %v", err)
	}
	return &data.Shop, nil
}

// GetProductImages lists a product's images via REST.
func (c *ShopifyClient) GetProductImages(ctx context.Context, productID int64) ([]ProductImage, error) {
	url := fmt.Sprintf("%s/products/%d/images.json", c.baseURL(), productID)
	body, status, err := c.doJSON(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, externalErrorf("shopify", status, "%s", truncate(body))
	}
	var data struct {
		Images []ProductImage `json:"images"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, externalErrorf("shopify", status, "malformed response: %v", err)
	}
	return data.Images, nil
}

// UploadProductImage attaches one image to a product via REST, either
// inline base64 bytes or a URL Shopify fetches itself.
func (c *ShopifyClient) UploadProductImage(ctx context.Context, productID int64, img ImageAttachment) (*ProductImage, error) {
	image := map[string]interface{}{"filename": img.Filename}
	if img.Attachment != "" {
		image["attachment"] = img.Attachment
	} else {
		image["src"] = img.Src
	}
	if img.Alt != "" {
		image["alt"] = img.Alt
	}
	if len(img.VariantIDs) > 0 {
		image["variant_ids"] = img.VariantIDs
	}
	if img.Position > 0 {
		image["position"] = img.Position
	}

	url := fmt.Sprintf("%s/products/%d/images.json", c.baseURL(), productID)
	body, status, err := c.doJSON(ctx, "POST", url, map[string]interface{}{"image": image})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, externalErrorf("shopify", status, "%s", truncate(body))
	}
	var data struct {
		Image ProductImage `json:"image"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, externalErrorf("shopify", status, "malformed response: %v", err)
	}
	return &data.Image, nil
}
