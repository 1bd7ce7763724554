package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListCurrencies reports the currency allowlist from the loaded settings
// snapshot so clients can populate pickers without hardcoding codes.
func (s *Server) ListCurrencies(c *gin.Context) {
	settings := s.settings.Current()
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"default_currency":       settings.DefaultCurrency,
			"allowed_currencies":     settings.AllowedCurrencies,
			"fx_markup_basis_points": settings.FxMarkupBasisPoints,
		},
	})
}
