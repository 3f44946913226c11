package forms

import (
	"encoding/json"
	"io/ioutil"
	"strings"

	"flowform/bizerror"
	"flowform/domain/attachment"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const maxUploadMemory = 32 << 20

// DecodeFormValues reads a dynamic form submission from a request. A JSON
// body is the value map itself; a multipart body carries the value map in
// the "data" part and one file part per freshly chosen document field.
func DecodeFormValues(c *gin.Context) (map[string]interface{}, error) {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "multipart/") {
		values := map[string]interface{}{}
		if err := c.ShouldBindBodyWith(&values, binding.JSON); err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		return values, nil
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, &bizerror.ErrBadParam{Cause: err}
	}

	values := map[string]interface{}{}
	if data := c.Request.FormValue("data"); data != "" {
		if err := json.Unmarshal([]byte(data), &values); err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
	}

	for name, headers := range c.Request.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		file, err := headers[0].Open()
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		content, err := ioutil.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		values[name] = &attachment.FilePayload{FileName: headers[0].Filename, Content: content}
	}

	return values, nil
}
