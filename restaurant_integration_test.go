package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restqr/app"
	"github.com/yeremiapane/restqr/config"
	"github.com/yeremiapane/restqr/database"
	"github.com/yeremiapane/restqr/kds"
	"github.com/yeremiapane/restqr/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger("error", "text")
	os.Exit(m.Run())
}

// TestEndToEndIntegration walks the main flow with Redis enabled:
// 1. Admin issues the table token (twice, same token)
// 2. Patron opens the menu
// 3. Admin activates the session
// 4. Patron places an order; the kitchen sees new_order
// 5. Kitchen completes the order; it leaves the pending list
func TestEndToEndIntegration(t *testing.T) {
	r, hub := setupApp(t)
	kitchen := hub.Subscribe("kitchen")
	defer hub.Unsubscribe(kitchen)

	token := issueTokenTest(t, r, 7)
	assert.Equal(t, token, issueTokenTest(t, r, 7))

	menuTest(t, r, token)
	activateTest(t, r, 7)

	orderID := createOrderTest(t, r, token)
	select {
	case frame := <-kitchen.Messages():
		var msg kds.Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		assert.Equal(t, kds.EventNewOrder, msg.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("kitchen did not receive new_order")
	}

	completeOrderTest(t, r, orderID)
}

func setupApp(t *testing.T) (*gin.Engine, *kds.Hub) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedMenu(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	a, err := app.New(ctx, &config.Config{
		SessionDuration: 2 * time.Hour,
		MenuCacheTTL:    time.Minute,
		CORSOrigins:     []string{"*"},
		KDSBuffer:       8,
		ServiceName:     "restqr-e2e",
	}, db, rdb, log)
	require.NoError(t, err)
	return a.Engine, a.Hub
}

func call(t *testing.T, r *gin.Engine, method, path string, body interface{}) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "%s %s: %s", method, path, w.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func issueTokenTest(t *testing.T, r *gin.Engine, table int) string {
	resp := call(t, r, http.MethodPost, fmt.Sprintf("/admin/tables/%d/token", table), nil)
	return resp["data"].(map[string]interface{})["token"].(string)
}

func menuTest(t *testing.T, r *gin.Engine, token string) {
	resp := call(t, r, http.MethodGet, "/menu/"+token, nil)
	categories := resp["categories"].(map[string]interface{})
	assert.Contains(t, categories, "Mains")
	assert.Contains(t, categories, "Other")
}

func activateTest(t *testing.T, r *gin.Engine, table int) {
	resp := call(t, r, http.MethodPost, fmt.Sprintf("/admin/tables/%d/activate", table), nil)
	assert.Equal(t, true, resp["data"].(map[string]interface{})["session_active"])
}

func createOrderTest(t *testing.T, r *gin.Engine, token string) uint {
	// seeded menu: 1 = Margherita Pizza 12.50, 3 = Lemonade 4.50
	resp := call(t, r, http.MethodPost, "/create_order", map[string]interface{}{
		"token": token,
		"items": []map[string]int{{"id": 1, "quantity": 2}, {"id": 3, "quantity": 1}},
	})
	assert.Equal(t, true, resp["success"])
	orderID := uint(resp["order_id"].(float64))

	confirmation := call(t, r, http.MethodGet, fmt.Sprintf("/order/confirmation/%d", orderID), nil)
	data := confirmation["data"].(map[string]interface{})
	assert.EqualValues(t, 29.5, data["total"])
	assert.EqualValues(t, 7, data["table_number"])
	return orderID
}

func completeOrderTest(t *testing.T, r *gin.Engine, orderID uint) {
	pending := call(t, r, http.MethodGet, "/kitchen/orders?status=pending", nil)
	assert.Len(t, pending["data"], 1)

	call(t, r, http.MethodPatch, fmt.Sprintf("/kitchen/orders/%d/status", orderID), map[string]string{"status": "completed"})

	pending = call(t, r, http.MethodGet, "/kitchen/orders?status=pending", nil)
	assert.Empty(t, pending["data"])
}
