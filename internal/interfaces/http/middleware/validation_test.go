package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type discountPayload struct {
	DiscountPct decimal.Decimal `json:"discount_pct" binding:"gte=0,lte=100"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req discountPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"discount_pct": req.DiscountPct})
	})
	return router
}

func TestSetupValidator_DecimalRangeRules(t *testing.T) {
	router := newValidationRouter()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "within range", body: `{"discount_pct": "15.5"}`, wantStatus: http.StatusOK},
		{name: "zero allowed", body: `{"discount_pct": "0"}`, wantStatus: http.StatusOK},
		{name: "negative rejected", body: `{"discount_pct": "-1"}`, wantStatus: http.StatusBadRequest},
		{name: "over 100 rejected", body: `{"discount_pct": "120"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
