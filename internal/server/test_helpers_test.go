package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/facetworks/facet/internal/auth"
	"github.com/facetworks/facet/internal/store"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testExchangeSecret = "test-exchange-secret"

func newTestHandler(t *testing.T) (http.Handler, *auth.TokenIssuer, *RealtimeDispatcher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&store.ViewInit{}, &store.ViewChange{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	viewStore, err := store.NewService(store.ServiceConfig{
		Database:   db,
		IDProvider: store.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to construct view store: %v", err)
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        "facet-auth",
		Audience:      "facet-api",
		TokenTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to construct token issuer: %v", err)
	}

	dispatcher := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		TokenManager:        tokenIssuer,
		TokenExchangeSecret: testExchangeSecret,
		ViewStore:           viewStore,
		Realtime:            dispatcher,
		Logger:              zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return handler, tokenIssuer, dispatcher
}

func issueTestToken(t *testing.T, issuer *auth.TokenIssuer) string {
	t.Helper()
	token, _, err := issuer.IssueServiceToken(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func jsonNumber(value int64) string {
	return strconv.FormatInt(value, 10)
}

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
