package search

import (
	"net/http"

	"flowform/bizerror"
	"flowform/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathTaskSearch = "/v1/task-search"
)

func RegisterTaskSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTaskSearch, middleWares...)
	g.GET("", handleSearchTasks)
}

func handleSearchTasks(c *gin.Context) {
	query := TaskSearchQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := SearchTasksFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
