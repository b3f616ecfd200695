package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage/cloud"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	store := cloud.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	ts := httptest.NewServer(New(store).Routes(Options{}))
	t.Cleanup(ts.Close)
	return ts
}

func seedReceipt(t *testing.T, ts *httptest.Server) *models.Receipt {
	t.Helper()
	r := &models.Receipt{
		ID:       "r1",
		BillName: "Dinner",
		ImageURL: "https://example.com/r1.jpg",
		Metadata: models.ReceiptMetadata{TotalInCents: 3000},
		People:   []models.Person{{ID: "alice", Name: "Alice"}},
		LineItems: []models.LineItem{
			{ID: "i1", Name: "Pizza", Quantity: 1, TotalPriceInCents: 3000},
		},
		Adjustments: []models.Adjustment{},
		ShareKey:    "share-key-1",
	}
	resp := doJSON(t, ts, http.MethodPost, "/receipts/create",
		map[string]string{HeaderDeviceID: "device-1"},
		map[string]any{"receipt": r})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return r
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, headers map[string]string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeReceipt(t *testing.T, resp *http.Response) *models.Receipt {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Success bool            `json:"success"`
		Receipt *models.Receipt `json:"receipt"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	return body.Receipt
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t)
	seedReceipt(t, ts)

	tests := []struct {
		name       string
		path       string
		headers    map[string]string
		wantStatus int
	}{
		{"no credentials", "/receipts/r1", nil, http.StatusUnauthorized},
		{"owner device id", "/receipts/r1", map[string]string{HeaderDeviceID: "device-1"}, http.StatusOK},
		{"wrong device id", "/receipts/r1", map[string]string{HeaderDeviceID: "device-9"}, http.StatusUnauthorized},
		{"valid share key", "/receipts/r1", map[string]string{HeaderShareKey: "share-key-1"}, http.StatusOK},
		{"invalid share key", "/receipts/r1", map[string]string{HeaderShareKey: "nope"}, http.StatusUnauthorized},
		{"unknown id", "/receipts/missing", map[string]string{HeaderDeviceID: "device-1"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, ts, http.MethodGet, tt.path, tt.headers, nil)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCreateStampsOwner(t *testing.T) {
	ts := newTestServer(t)

	r := &models.Receipt{
		ID:          "r2",
		BillName:    "Lunch",
		Metadata:    models.ReceiptMetadata{TotalInCents: 1000},
		People:      []models.Person{},
		LineItems:   []models.LineItem{},
		Adjustments: []models.Adjustment{},
	}
	resp := doJSON(t, ts, http.MethodPost, "/receipts/create",
		map[string]string{HeaderDeviceID: "device-7"},
		map[string]any{"receipt": r})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success   bool            `json:"success"`
		ReceiptID string          `json:"receiptId"`
		Receipt   *models.Receipt `json:"receipt"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "r2", body.ReceiptID)
	assert.Equal(t, "device-7", body.Receipt.OwnerID)
	assert.Equal(t, "device-7", body.Receipt.DeviceID)
	assert.True(t, body.Receipt.IsShared)
	assert.NotEmpty(t, body.Receipt.LastSyncedAt)
}

func TestCreateRequiresDeviceID(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/receipts/create", nil,
		map[string]any{"receipt": &models.Receipt{ID: "x"}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetLineItems(t *testing.T) {
	ts := newTestServer(t)
	seedReceipt(t, ts)

	items := []models.LineItem{
		{ID: "i9", Name: "Cake", Quantity: 1, TotalPriceInCents: 800,
			Splitting: &models.Splitting{Portions: []models.PersonPortion{
				{PersonID: "alice", Portions: 1},
			}}},
	}
	resp := doJSON(t, ts, http.MethodPut, "/receipts/r1/line-items",
		map[string]string{HeaderShareKey: "share-key-1"},
		map[string]any{"lineItems": items})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeReceipt(t, resp)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "Cake", got.LineItems[0].Name)
}

func TestSetLineItemsRejectsDuplicatePortions(t *testing.T) {
	ts := newTestServer(t)
	seedReceipt(t, ts)

	items := []models.LineItem{
		{ID: "i9", Name: "Cake", Quantity: 1, TotalPriceInCents: 800,
			Splitting: &models.Splitting{Portions: []models.PersonPortion{
				{PersonID: "alice", Portions: 1},
				{PersonID: "alice", Portions: 2},
			}}},
	}
	resp := doJSON(t, ts, http.MethodPut, "/receipts/r1/line-items",
		map[string]string{HeaderDeviceID: "device-1"},
		map[string]any{"lineItems": items})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddAndRemovePerson(t *testing.T) {
	ts := newTestServer(t)
	seedReceipt(t, ts)

	resp := doJSON(t, ts, http.MethodPost, "/receipts/r1/people",
		map[string]string{HeaderDeviceID: "device-1"},
		map[string]any{"person": map[string]string{"name": "Bob"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success  bool            `json:"success"`
		Receipt  *models.Receipt `json:"receipt"`
		PersonID string          `json:"personId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	require.NotEmpty(t, body.PersonID)
	require.Len(t, body.Receipt.People, 2)

	del := doJSON(t, ts, http.MethodDelete, "/receipts/r1/people/"+body.PersonID,
		map[string]string{HeaderDeviceID: "device-1"}, nil)
	require.Equal(t, http.StatusOK, del.StatusCode)
	got := decodeReceipt(t, del)
	require.Len(t, got.People, 1)
	assert.Nil(t, got.Person(body.PersonID))
}

func TestUpdateShallowPatch(t *testing.T) {
	ts := newTestServer(t)
	seedReceipt(t, ts)

	resp := doJSON(t, ts, http.MethodPut, "/receipts/r1",
		map[string]string{HeaderDeviceID: "device-1"},
		map[string]any{"updates": map[string]any{"billName": "Renamed"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeReceipt(t, resp)
	assert.Equal(t, "Renamed", got.BillName)
	require.Len(t, got.LineItems, 1) // untouched fields survive
}

func TestListReceiptsByDevice(t *testing.T) {
	ts := newTestServer(t)
	seedReceipt(t, ts)

	resp := doJSON(t, ts, http.MethodGet, "/receipts",
		map[string]string{HeaderDeviceID: "device-1"}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success  bool                       `json:"success"`
		Receipts map[string]*models.Receipt `json:"receipts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Receipts, 1)
	assert.Contains(t, body.Receipts, "r1")
}
