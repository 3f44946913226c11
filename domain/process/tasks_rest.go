package process

import (
	"net/http"

	"flowform/bizerror"
	"flowform/domain/forms"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathTasks = "/v1/tasks"
)

func RegisterTasksRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTasks, middleWares...)
	g.GET("", handleQueryTasks)
	g.GET(":id", handleDetailTask)
	g.PUT(":id/data", handleSaveTaskData)
	g.POST(":id/completion", handleCompleteTask)
	g.POST(":id/skip", handleSkipTask)
	g.PUT(":id/assignment", handleUpdateTaskAssignment)
	g.GET(":id/files/:fieldName", handleTaskFile)
	g.GET(":id/files/:fieldName/content", handleTaskFileContent)
}

func handleQueryTasks(c *gin.Context) {
	query := TaskQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryTasksFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailTask(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := DetailTaskFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleSaveTaskData(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	values, err := forms.DecodeFormValues(c)
	if err != nil {
		panic(err)
	}
	record, err := SaveTaskDataFunc(id, values, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCompleteTask(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CompleteTaskFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleSkipTask(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := SkipTaskFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateTaskAssignment(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	updating := TaskAssignmentUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateTaskAssignmentFunc(id, updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleTaskFile(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	url, err := TaskFileURLFunc(id, c.Param("fieldName"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.Redirect(http.StatusFound, url)
}

func handleTaskFileContent(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	content, err := TaskFileContentFunc(id, c.Param("fieldName"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.Data(http.StatusOK, "application/octet-stream", content)
}
