package indices

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"flowform/authority"
	"flowform/bizerror"
	"flowform/session"
	"flowform/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestHandleIndexRequest(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	RegisterIndicesRestAPI(router, session.SimpleAuthFilter(), session.AdminFilter())

	origSchedule := ScheduleNewSyncRunFunc
	defer func() {
		ScheduleNewSyncRunFunc = origSchedule
		session.TokenCache.Flush()
	}()

	adminToken := "test-admin-token"
	session.TokenCache.SetDefault(adminToken, &session.Session{Token: adminToken,
		Identity: session.Identity{ID: 1, Name: "admin", Role: authority.RoleAdministrator}})
	executorToken := "test-executor-token"
	session.TokenCache.SetDefault(executorToken, &session.Session{Token: executorToken,
		Identity: session.Identity{ID: 2, Name: "worker", Role: authority.RoleTaskExecutor}})

	t.Run("reject anonymous requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, PathIndexRequests, nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"common.unauthenticated", "message":"unauthenticated", "data":null}`))
	})

	t.Run("reject non administrators", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, PathIndexRequests, nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: executorToken})
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(MatchJSON(`{"code":"security.forbidden", "message":"access forbidden", "data":null}`))
	})

	t.Run("handle error", func(t *testing.T) {
		ScheduleNewSyncRunFunc = func(s *session.Session) (bool, error) {
			return false, errors.New("error on schedule new sync run")
		}
		req := httptest.NewRequest(http.MethodPost, PathIndexRequests, nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: adminToken})
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(body).To(MatchJSON(`{"code":"common.internal_server_error", "message":"error on schedule new sync run", "data":null}`))
	})

	t.Run("submit index request successfully", func(t *testing.T) {
		ScheduleNewSyncRunFunc = func(s *session.Session) (bool, error) {
			return true, nil
		}
		req := httptest.NewRequest(http.MethodPost, PathIndexRequests, nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: adminToken})
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"result": true}`))
	})
}
