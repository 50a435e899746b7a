package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify-feed-service/internal/clients"
	"shopify-feed-service/internal/config"
	"shopify-feed-service/internal/settings"
)

// SettingsHandler exposes the operator-editable runtime settings.
type SettingsHandler struct {
	store *settings.Store
	cfg   *config.Config
}

func NewSettingsHandler(store *settings.Store, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{store: store, cfg: cfg}
}

// Get returns the current settings. The access token is masked; the
// operator resubmits it to change it.
// GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	s := h.store.Get()
	if s.ShopifyAccessToken != "" {
		s.ShopifyAccessToken = "********"
	}
	respondData(c, http.StatusOK, s)
}

// Put replaces the settings. A masked token in the payload keeps the
// stored one.
// PUT /settings
func (h *SettingsHandler) Put(c *gin.Context) {
	var incoming settings.Settings
	if err := c.ShouldBindJSON(&incoming); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if incoming.ShopifyAccessToken == "********" {
		incoming.ShopifyAccessToken = h.store.Get().ShopifyAccessToken
	}
	if err := h.store.Save(incoming); err != nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "failed to save settings")
		return
	}
	respondData(c, http.StatusOK, incoming)
}

// Test verifies the saved Shopify credentials by fetching shop info.
// POST /settings/test
func (h *SettingsHandler) Test(c *gin.Context) {
	s := h.store.Get()
	store := s.ShopifyStore
	token := s.ShopifyAccessToken
	version := s.ShopifyAPIVersion
	if store == "" || token == "" {
		store = h.cfg.ShopifyStore
		token = h.cfg.ShopifyToken
		version = h.cfg.ShopifyAPIVersion
	}
	if store == "" || token == "" {
		respondError(c, http.StatusBadRequest, "SHOPIFY_NOT_CONFIGURED", "shopify store credentials are not configured")
		return
	}

	client := clients.NewShopifyClientFromValues(store, token, version)
	shop, err := client.GetShopInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "SHOPIFY_ERROR", err.Error())
		return
	}
	respondData(c, http.StatusOK, shop)
}
