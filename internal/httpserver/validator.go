package httpserver

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is process-wide. Field names in validation errors are derived
// from each struct's json tag rather than the Go field name, so the
// validation details carried in the apierror.Error name "evmAddress", not
// "EVMAddress". The 400 response body itself carries only the error title.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
