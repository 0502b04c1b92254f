package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSON(t *testing.T, body string, dest interface{}) error {
	t.Helper()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(dest)
}

func TestAdjustStockRequestAcceptsZero(t *testing.T) {
	var req adjustStockRequest
	require.NoError(t, bindJSON(t, `{"new_quantity":0}`, &req))
	require.NotNil(t, req.NewQuantity)
	assert.Equal(t, 0, *req.NewQuantity)
}

func TestAdjustStockRequestValidation(t *testing.T) {
	var req adjustStockRequest
	assert.Error(t, bindJSON(t, `{}`, &req), "missing new_quantity")

	req = adjustStockRequest{}
	assert.Error(t, bindJSON(t, `{"new_quantity":-1}`, &req), "negative target")

	req = adjustStockRequest{}
	require.NoError(t, bindJSON(t, `{"new_quantity":25,"reason":"recount"}`, &req))
	assert.Equal(t, 25, *req.NewQuantity)
	assert.Equal(t, "recount", req.Reason)
}

func TestAddStockRequestValidation(t *testing.T) {
	var req addStockRequest
	require.NoError(t, bindJSON(t, `{"quantity":5}`, &req))
	assert.Equal(t, 5, req.Quantity)

	req = addStockRequest{}
	assert.Error(t, bindJSON(t, `{"quantity":0}`, &req), "additions must move stock")

	req = addStockRequest{}
	assert.Error(t, bindJSON(t, `{}`, &req), "missing quantity")
}
