package table

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
	PathTableEntries = "/v1/table-entries"
)

func RegisterEntriesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	t := r.Group(PathDynamicTables, middleWares...)
	t.GET(":id/entries", handleQueryEntries)
	t.POST(":id/entries", handleCreateEntry)

	g := r.Group(PathTableEntries, middleWares...)
	g.GET(":id", handleDetailEntry)
	g.PUT(":id", handleUpdateEntry)
	g.PUT(":id/archived", handleArchiveEntry)
	g.GET(":id/files/:fieldName", handleEntryFile)
}

func handleQueryEntries(c *gin.Context) {
	tableId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	query := EntryQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryEntriesFunc(tableId, query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailEntry(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := DetailEntryFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCreateEntry(c *gin.Context) {
	tableId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	values, err := forms.DecodeFormValues(c)
	if err != nil {
		panic(err)
	}
	record, err := CreateEntryFunc(tableId, values, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateEntry(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	values, err := forms.DecodeFormValues(c)
	if err != nil {
		panic(err)
	}
	record, err := UpdateEntryFunc(id, values, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleArchiveEntry(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	updating := archiveUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := ArchiveEntryFunc(id, updating.Archived, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleEntryFile(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	url, err := EntryFileURLFunc(id, c.Param("fieldName"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.Redirect(http.StatusFound, url)
}
