package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidationOnce sync.Once

// registerValidation makes validation errors report JSON field names.
func registerValidation() {
	registerValidationOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

// bindJSON decodes and validates the request body into dst. On failure
// the error is recorded and the request aborted.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, err)
		return false
	}
	return true
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
