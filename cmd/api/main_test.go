package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/clinic-reservation/internal/auth"
	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func memoryConfig() *appconfig.Config {
	return &appconfig.Config{
		Env:                "development",
		JWTTTL:             time.Hour,
		AuthCookieName:     "token",
		AdminEmail:         "admin@example.com",
		AdminPassword:      "adminpass1",
		LoginRatePerSec:    1,
		LoginRateBurst:     5,
		EmailProvider:      "stub",
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    25,
		SlotDayStart:       "09:00",
		SlotDayEnd:         "10:00",
		SlotMinutes:        30,
		SlotHorizonDays:    7,
		ClinicTimezone:     "Asia/Tokyo",
	}
}

func TestBuildRuntimeMemoryMode(t *testing.T) {
	cfg := memoryConfig()
	rt, err := buildRuntime(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	defer rt.close()

	if rt.deliverer == nil {
		t.Fatalf("expected an in-process deliverer in memory mode")
	}

	rr := httptest.NewRecorder()
	rt.api.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/departments", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var depts []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&depts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(depts) != 3 {
		t.Fatalf("expected seeded departments, got %d", len(depts))
	}

	if _, err := rt.api.Auth.Login(context.Background(), loginRequest(cfg)); err != nil {
		t.Fatalf("expected bootstrap admin to log in: %v", err)
	}
}

func TestBuildHistoryFallbacks(t *testing.T) {
	cfg := &appconfig.Config{}
	if buildHistory(cfg, nil, true, logging.New("error")) == nil {
		t.Fatalf("expected memory history in memory mode")
	}
	if buildHistory(cfg, nil, false, logging.New("error")) != nil {
		t.Fatalf("expected no history without an audit table")
	}
}

func loginRequest(cfg *appconfig.Config) auth.LoginRequest {
	return auth.LoginRequest{Username: cfg.AdminEmail, Password: cfg.AdminPassword}
}
