//go:build integration

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/MONA100421/ShopFlow-sub000/db"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/handler"
	"github.com/MONA100421/ShopFlow-sub000/internal/storage/postgres"
)

const (
	integrationPepper = "test-pepper-for-integration"
	integrationKey    = "integration-test-key"
)

var databaseURL string

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shopflow",
				"POSTGRES_PASSWORD": "shopflow",
				"POSTGRES_DB":       "shopflow",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	databaseURL = fmt.Sprintf("postgres://shopflow:shopflow@%s:%s/shopflow?sslmode=disable", host, port.Port())

	if err := seed(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}
	return m.Run()
}

// seed loads what cmd/seed-db would.
func seed(ctx context.Context) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}
	products, err := db.ParseProducts(db.SeedProducts)
	if err != nil {
		return err
	}
	repo := postgres.NewProductRepository(pool)
	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return postgres.NewAPIKeyRepository(pool).Upsert(ctx, auth.APIKeyInfo{
		ID:      "gateway",
		KeyHash: auth.HashKey([]byte(integrationPepper), integrationKey),
		Name:    "Integration gateway",
		Scopes:  []string{auth.ScopeActAsUser},
	})
}

func startServer(t *testing.T) (*service, *httptest.Server) {
	t.Helper()

	cfg := testConfig()
	cfg.DatabaseURL = databaseURL
	cfg.APIKeyPepper = integrationPepper

	lg := zap.NewNop()
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), lg))
	t.Cleanup(cancel)

	srv, err := build(ctx, lg, noopTelemetry{}, cfg)
	require.NoError(t, err)
	t.Cleanup(srv.close)
	srv.probes.SetReady(true)

	ts := httptest.NewServer(srv.handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func call(t *testing.T, ts *httptest.Server, method, path, body string, header map[string]string) *http.Response {
	t.Helper()

	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequestWithContext(context.Background(), method, ts.URL+path, nil)
	} else {
		req, err = http.NewRequestWithContext(context.Background(), method, ts.URL+path, strings.NewReader(body))
	}
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type cartResponse struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Totals struct {
		Subtotal json.Number `json:"subtotal"`
		Discount json.Number `json:"discount"`
		Total    json.Number `json:"total"`
	} `json:"totals"`
	DiscountStatus string `json:"discountStatus"`
}

func TestIntegration_Readiness(t *testing.T) {
	srv, ts := startServer(t)
	assert.Equal(t, "postgres", srv.storage)

	resp := call(t, ts, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_Products(t *testing.T) {
	_, ts := startServer(t)

	resp := call(t, ts, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decodeJSON[[]map[string]any](t, resp)
	assert.Len(t, products, 6)

	resp = call(t, ts, http.MethodGet, "/api/products/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_GuestCheckout(t *testing.T) {
	_, ts := startServer(t)

	resp := call(t, ts, http.MethodPost, "/api/cart/items", `{"productId":"1","quantity":2}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := resp.Header.Get(handler.SessionHeader)
	require.NotEmpty(t, session)
	guest := map[string]string{handler.SessionHeader: session}

	resp = call(t, ts, http.MethodPut, "/api/cart/discount", `{"code":"save20"}`, guest)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeJSON[cartResponse](t, resp)
	assert.Equal(t, "99.98", view.Totals.Subtotal.String())
	assert.Equal(t, "20.00", view.Totals.Discount.String())
	assert.Equal(t, "89.98", view.Totals.Total.String())

	// Out of stock.
	resp = call(t, ts, http.MethodPost, "/api/cart/items", `{"productId":"6"}`, guest)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = call(t, ts, http.MethodPost, "/api/orders", "", guest)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "pending", placed["status"])

	resp = call(t, ts, http.MethodGet, "/api/orders/"+placed["id"].(string), "", guest)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/cart", "", guest)
	assert.Empty(t, decodeJSON[cartResponse](t, resp).Items)
}

func TestIntegration_MergeSurvivesRestart(t *testing.T) {
	_, ts := startServer(t)

	resp := call(t, ts, http.MethodPost, "/api/cart/items", `{"productId":"3","quantity":4}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := resp.Header.Get(handler.SessionHeader)

	user := map[string]string{handler.UserHeader: "bob", handler.APIKeyHeader: integrationKey}
	body := `{"guestSession":"` + session + `","mergeKey":"bob-login-1"}`

	resp = call(t, ts, http.MethodPost, "/api/cart/merge", body, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	merged := decodeJSON[cartResponse](t, resp)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 4, merged.Items[0].Quantity)

	// A new process reads the same state; the merge key is still claimed.
	_, ts2 := startServer(t)
	resp = call(t, ts2, http.MethodPost, "/api/cart/merge", body, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeJSON[cartResponse](t, resp)
	require.Len(t, again.Items, 1)
	assert.Equal(t, 4, again.Items[0].Quantity)

	resp = call(t, ts2, http.MethodGet, "/api/cart", "", map[string]string{handler.SessionHeader: session})
	assert.Empty(t, decodeJSON[cartResponse](t, resp).Items)

	resp = call(t, ts2, http.MethodGet, "/api/cart", "", map[string]string{handler.UserHeader: "bob"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
