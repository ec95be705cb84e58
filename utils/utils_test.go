package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[float64]string{
		0:          "₹0.00",
		5:          "₹5.00",
		1234.5:     "₹1,234.50",
		1000000:    "₹1,000,000.00",
		-42.129:    "-₹42.13",
		999.999999: "₹1,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCurrency(in), "amount %v", in)
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 45.0, RoundMoney(44.999))
}

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret", time.Hour)

	token, err := GenerateToken(7, "owner", "Asha")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "owner", claims.Role)
	assert.Equal(t, "Asha", claims.Name)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestRespondErrorHidesServerFailures(t *testing.T) {
	InitLoggerWithLevel("fatal")
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	RespondError(c, http.StatusInternalServerError, errors.New("sql: database is closed"))
	assert.JSONEq(t, `{"status":false,"message":"Internal Server Error"}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/orders/9/status", nil)
	RespondError(c, http.StatusNotFound, errors.New("Order not found"))
	assert.JSONEq(t, `{"status":false,"message":"Order not found"}`, w.Body.String())
}
