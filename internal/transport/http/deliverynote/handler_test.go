package deliverynote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/suratjalan/internal/entity"
	"github.com/Additional-Code/suratjalan/internal/testkit"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

type server struct {
	e     *echo.Echo
	stack *testkit.Stack
	po    entity.PurchaseOrder
}

func newServer() *server {
	stack := testkit.New(time.Date(2025, 3, 10, 9, 0, 0, 0, testkit.WIB))
	e := echo.New()
	Register(e, NewHandler(stack.NoteService))

	po := stack.PurchaseOrders.Put(entity.PurchaseOrder{
		Number:           "PO-001",
		Date:             time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ProductType:      entity.ProductCPO,
		TotalTonnage:     decimal.NewFromInt(100),
		PricePerTon:      decimal.NewFromInt(10),
		TotalValue:       decimal.NewFromInt(1000),
		ShippedTonnage:   decimal.Zero,
		RemainingTonnage: decimal.NewFromInt(100),
		Status:           entity.POStatusActive,
	})
	return &server{e: e, stack: stack, po: po}
}

func (s *server) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *server) storedPO(t *testing.T) entity.PurchaseOrder {
	t.Helper()
	po, ok := s.stack.PurchaseOrders.Snapshot(s.po.ID)
	require.True(t, ok)
	return po
}

func data(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestCreateDefaultsAndAdvances(t *testing.T) {
	s := newServer()

	rec, env := s.do(t, http.MethodPost, "/delivery-notes", `{
		"date":"2025-03-10","vehicle_plate":"B 1234 XYZ","driver_name":"Budi",
		"delivery_note_number":"SJ-1","destination":"Dumai","po_number":"-"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	note := data(t, env)
	assert.Equal(t, "in_transit", note["status"])
	assert.Equal(t, "", note["po_number"])
	assert.Nil(t, note["net_weight"])
	assert.Equal(t, "2025-03-10", note["date"])
}

func TestCreateCompletedReconcilesPurchaseOrder(t *testing.T) {
	s := newServer()

	rec, _ := s.do(t, http.MethodPost, "/delivery-notes", `{
		"date":"2025-03-09","vehicle_plate":"BM 77 AB","driver_name":"Andi",
		"delivery_note_number":"SJ-2","destination":"Pekanbaru","po_number":"PO-001",
		"status":"completed","net_weight":"30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	po := s.storedPO(t)
	assert.True(t, po.ShippedTonnage.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, entity.POStatusPartial, po.Status)
}

func TestCreateValidation(t *testing.T) {
	s := newServer()

	rec, env := s.do(t, http.MethodPost, "/delivery-notes", `{"vehicle_plate":"1234","status":"waiting","net_weight":"5"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", env.Error.Kind)
	for _, field := range []string{"date", "vehicle_plate", "driver_name", "delivery_note_number", "destination", "net_weight"} {
		assert.Contains(t, env.Error.Fields, field)
	}
}

func TestWeightLifecycle(t *testing.T) {
	s := newServer()
	note := s.stack.DeliveryNotes.Put(entity.DeliveryNote{
		Date:         time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		VehiclePlate: "B 1 A",
		DriverName:   "Budi",
		Number:       "SJ-3",
		Destination:  "Dumai",
		PONumber:     "PO-001",
		Status:       entity.NoteInTransit,
	})

	rec, env := s.do(t, http.MethodPut, "/delivery-notes/"+note.ID+"/weight", `{"net_weight":"40"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Error.Fields, "net_weight")

	rec, _ = s.do(t, http.MethodPut, "/delivery-notes/"+note.ID+"/weight", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodPatch, "/delivery-notes/"+note.ID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodPut, "/delivery-notes/"+note.ID+"/weight", `{"net_weight":40}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "40", data(t, env)["net_weight"])
	assert.True(t, s.storedPO(t).ShippedTonnage.Equal(decimal.NewFromInt(40)))

	rec, env = s.do(t, http.MethodPatch, "/delivery-notes/"+note.ID, `{"net_weight":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, data(t, env)["net_weight"])
	assert.True(t, s.storedPO(t).ShippedTonnage.IsZero())
	assert.Equal(t, entity.POStatusActive, s.storedPO(t).Status)
}

func TestListStatsAndRemove(t *testing.T) {
	s := newServer()
	done := s.stack.DeliveryNotes.Put(entity.DeliveryNote{
		Number: "SJ-10", DriverName: "Budi", PONumber: "PO-001",
		Status: entity.NoteCompleted, NetWeight: decimal.NewNullDecimal(decimal.NewFromInt(25)),
	})
	s.stack.DeliveryNotes.Put(entity.DeliveryNote{Number: "SJ-11", DriverName: "Andi", Status: entity.NoteWaiting})

	rec, env := s.do(t, http.MethodGet, "/delivery-notes?q=andi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "SJ-11", list[0]["delivery_note_number"])

	rec, _ = s.do(t, http.MethodGet, "/delivery-notes?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/delivery-notes/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := data(t, env)
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 1, stats["waiting"])
	assert.EqualValues(t, 1, stats["completed"])
	assert.Equal(t, "25", stats["total_net_weight"])

	rec, _ = s.do(t, http.MethodDelete, "/delivery-notes/"+done.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, env = s.do(t, http.MethodGet, "/delivery-notes/"+done.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Kind)

	rec, _ = s.do(t, http.MethodGet, "/delivery-notes/export", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "delivery-notes.xlsx")
}
