package sessions_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flowform/authority"
	"flowform/session"
	"flowform/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/patrickmn/go-cache"
)

func TestDetailSessionSecurityContext(t *testing.T) {
	RegisterTestingT(t)

	var (
		router       *gin.Engine
		testDatabase *testinfra.TestDatabase
	)

	t.Run("should return the current security context and renew the token", func(t *testing.T) {
		defer afterEachSessionsRestApiCase(t, testDatabase)
		router, testDatabase = beforeEachSessionsRestApiCase(t)

		sec := &session.Session{Token: "test_token",
			Identity:    session.Identity{ID: 2, Name: "ann", Nickname: "Ann", Role: authority.RoleStandardUser},
			SigningTime: time.Now()}
		Expect(session.TokenCache.Add("test_token", sec, cache.DefaultExpiration)).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: "test_token"})
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"identity":{"id":"2","name":"ann","nickname":"Ann","role":"StandardUser"},` +
			`"token":"test_token"}`))
	})

	t.Run("should return 401 without a valid token", func(t *testing.T) {
		defer afterEachSessionsRestApiCase(t, testDatabase)
		router, testDatabase = beforeEachSessionsRestApiCase(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"common.unauthenticated","message":"unauthenticated","data":null}`))

		req = httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: "unknown_token"})
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	t.Run("should return 401 when the signing time is too old", func(t *testing.T) {
		defer afterEachSessionsRestApiCase(t, testDatabase)
		router, testDatabase = beforeEachSessionsRestApiCase(t)

		sec := &session.Session{Token: "test_token", Identity: session.Identity{ID: 2, Name: "ann"},
			SigningTime: time.Now().Add(-session.TokenExpiration - time.Minute)}
		Expect(session.TokenCache.Add("test_token", sec, cache.DefaultExpiration)).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: "test_token"})
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})
}
