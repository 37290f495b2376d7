package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bilanco/internal/core/apperror"
	"bilanco/internal/domain/accounts"
)

// AccountsHandler serves the chart of accounts registry.
type AccountsHandler struct {
	*BaseHandler
	registry *accounts.Registry
}

// NewAccountsHandler creates an accounts handler.
func NewAccountsHandler(base *BaseHandler, registry *accounts.Registry) *AccountsHandler {
	return &AccountsHandler{BaseHandler: base, registry: registry}
}

// List handles GET /accounts - full chart of accounts.
func (h *AccountsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":      h.registry.Nodes(),
		"totalCount": h.registry.Len(),
	})
}

// Get handles GET /accounts/:code - one account node.
func (h *AccountsHandler) Get(c *gin.Context) {
	node, err := h.registry.LookupByCode(c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, node)
}

// Children handles GET /accounts/:code/children.
func (h *AccountsHandler) Children(c *gin.Context) {
	code := c.Param("code")
	if !h.registry.Contains(code) {
		h.Error(c, apperror.NewNotFound("account", code))
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": h.registry.Children(code)})
}

// Search handles GET /accounts/search?q={label}&limit={n} - fuzzy label search.
func (h *AccountsHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		h.Error(c, apperror.NewValidation("query parameter 'q' is required"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 10)
	candidates := h.registry.SearchByLabel(query, limit)

	c.JSON(http.StatusOK, gin.H{"items": candidates})
}
