package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyulbade/furniture-credit/internal/config"
	"github.com/anyulbade/furniture-credit/internal/database"
)

func memoryConfig(providerURL string) *config.Config {
	return &config.Config{
		StoreDriver:       "memory",
		JWTSecret:         "test-secret",
		KredikaURL:        providerURL,
		KredikaAPIKey:     "key",
		KredikaPartnerKey: "partner",
		KredikaAnnualRate: 0.08,
	}
}

func TestNew_MemoryStore(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	}))
	defer provider.Close()

	a, err := New(context.Background(), memoryConfig(provider.URL))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Pool)

	t.Run("happy: demo catalogue is seeded", func(t *testing.T) {
		eligibility, err := a.Credit.CheckEligibility(context.Background(), database.DemoUsers[0].ID, 1000)
		require.NoError(t, err)
		assert.True(t, eligibility.Eligible)
	})

	t.Run("happy: health reports the memory store", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/health", a.HealthHandler().Health)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "memory")
	})

	t.Run("happy: handlers are wired", func(t *testing.T) {
		h := a.Handlers()
		assert.NotNil(t, h.Orders)
		assert.NotNil(t, h.Credit)
		assert.NotNil(t, h.Webhook)
		assert.NotNil(t, h.Admin)
	})
}

func TestNew_EmailNotifier(t *testing.T) {
	cfg := memoryConfig("http://127.0.0.1:1")
	cfg.SMTPHost = "localhost"
	cfg.SMTPPort = 2525

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.emailNotify)
	a.Close()
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	SetupLogger("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetupLogger("loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
