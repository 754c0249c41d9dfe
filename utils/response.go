package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
)

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func JSONPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	ctx.JSON(iris.Map{
		"data": data,
		"meta": PageMeta{Page: page, PerPage: perPage, Total: total},
	})
}

// Paging reads page/per_page query params, clamping per_page to [1,100].
func Paging(ctx iris.Context, defaultPerPage int) (page, perPage int) {
	page = ctx.URLParamIntDefault("page", 1)
	if page < 1 {
		page = 1
	}
	perPage = ctx.URLParamIntDefault("per_page", defaultPerPage)
	if perPage <= 0 || perPage > 100 {
		perPage = defaultPerPage
	}
	return page, perPage
}

func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StopWithJSON(status, iris.Map{"error": message, "code": code})
}

func CreateError(statusCode int, title, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"error": detail, "title": title})
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "Internal server error", ctx)
}

// InternalError logs err with the route and answers with a generic 500.
func InternalError(ctx iris.Context, err error) {
	golog.Errorf("%s %s: %v", ctx.Method(), ctx.Path(), err)
	CreateInternalServerError(ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "Not found", ctx)
}

func CreateEmailAlreadyRegistered(ctx iris.Context) {
	CreateError(iris.StatusConflict, "Conflict", "Email already registered", ctx)
}

type validationError struct {
	ActualTag string `json:"tag"`
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Param     string `json:"param"`
}

func wrapValidationErrors(errs validator.ValidationErrors) []validationError {
	out := make([]validationError, 0, len(errs))
	for _, e := range errs {
		out = append(out, validationError{
			ActualTag: e.ActualTag(),
			Namespace: e.Namespace(),
			Kind:      e.Kind().String(),
			Type:      e.Type().String(),
			Value:     toString(e.Value()),
			Param:     e.Param(),
		})
	}
	return out
}

// HandleValidationErrors answers ReadJSON failures: 400 with the failing
// fields for validator errors, 400 "Invalid payload" for decode errors.
func HandleValidationErrors(err error, ctx iris.Context) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"error":  "Missing required fields",
			"title":  "Validation Error",
			"errors": wrapValidationErrors(errs),
		})
		return
	}
	CreateError(iris.StatusBadRequest, "Validation Error", "Invalid payload", ctx)
}
