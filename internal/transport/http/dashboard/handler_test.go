package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/testkit"
)

func TestSummary(t *testing.T) {
	stack := testkit.New(time.Date(2025, 3, 10, 9, 0, 0, 0, testkit.WIB))
	stack.PurchaseOrders.Put(entity.PurchaseOrder{
		Number: "PO-1", Status: entity.POStatusPartial,
		RemainingTonnage: decimal.NewFromInt(60), TotalValue: decimal.NewFromInt(1000),
	})
	stack.PurchaseOrders.Put(entity.PurchaseOrder{
		Number: "PO-2", Status: entity.POStatusCompleted,
		RemainingTonnage: decimal.Zero, TotalValue: decimal.NewFromInt(500),
	})
	stack.DeliveryNotes.Put(entity.DeliveryNote{Number: "SJ-1", Status: entity.NoteCompleted})

	e := echo.New()
	Register(e, NewHandler(stack.Dashboard))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.EqualValues(t, 2, env.Data["total_pos"])
	assert.EqualValues(t, 1, env.Data["partial_pos"])
	assert.EqualValues(t, 1, env.Data["completed_pos"])
	assert.EqualValues(t, 1, env.Data["total_shipments"])
	assert.Equal(t, "60", env.Data["total_remaining_tonnage"])
	assert.Equal(t, "1500", env.Data["total_value"])
	assert.Len(t, env.Data["open_purchase_orders"], 1)
	assert.Len(t, env.Data["recent_shipments"], 1)
}
