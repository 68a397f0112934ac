package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testSecret = []byte("controllers-test-secret")

type testEnv struct {
	Engine *services.Engine
	Hub    *kds.Hub
	Demo   *database.Demo
	Router *gin.Engine
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:controllers_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	demo, err := database.Seed(db)
	require.NoError(t, err)

	engine := services.NewEngine(db, services.EngineOptions{AtomicInventory: true, Logger: utils.InfoLogger})
	hub := kds.NewHub(utils.InfoLogger)
	r := router.SetupRouter(router.Deps{
		Engine:        engine,
		Hub:           hub,
		JWTSecret:     testSecret,
		AllowedOrigin: "*",
	})
	return &testEnv{Engine: engine, Hub: hub, Demo: demo, Router: r}
}

func (env *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, env.Demo.Restaurant.ID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do mengirim request dengan token role tertentu; role kosong berarti tanpa token
func (env *testEnv) do(t *testing.T, method, path, role string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+env.token(t, role))
	}

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func decodeData(t *testing.T, resp apiResponse, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}
