package testinfra

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"

	"flowform/authority"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSession builds an authenticated session for service-level tests.
func BuildSession(uid types.ID, role authority.Role) *session.Session {
	return &session.Session{
		Identity: session.Identity{ID: uid, Name: "user" + uid.String(), Role: role},
		Context:  context.Background(),
	}
}

func BuildAdminSession(uid types.ID) *session.Session {
	return BuildSession(uid, authority.RoleAdministrator)
}

// ExecuteRequest runs the request against the router and returns the response
// status, body and the response itself for header and cookie assertions.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	resp := w.Result()
	defer func() {
		_ = resp.Body.Close()
	}()
	bodyBytes, _ := ioutil.ReadAll(resp.Body)
	return resp.StatusCode, string(bodyBytes), resp
}
