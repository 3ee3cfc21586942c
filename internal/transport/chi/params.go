package chi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// SearchParams are the query parameters of GET /api/v1/search.
type SearchParams struct {
	Q       string   `form:"q" json:"q"`
	Mode    *string  `form:"mode,omitempty" json:"mode,omitempty"`
	Limit   *int     `form:"limit,omitempty" json:"limit,omitempty"`
	UserID  *string  `form:"user_id,omitempty" json:"user_id,omitempty"`
	Rewrite *bool    `form:"rewrite,omitempty" json:"rewrite,omitempty"`
	Facet   []string `form:"facet,omitempty" json:"facet,omitempty"`
	// Filter entries have the form field:value; repeat for more values.
	Filter []string `form:"filter,omitempty" json:"filter,omitempty"`
}

// SuggestParams are the query parameters of GET /api/v1/suggest.
type SuggestParams struct {
	Q      string  `form:"q" json:"q"`
	UserID *string `form:"user_id,omitempty" json:"user_id,omitempty"`
}

// InvalidParamFormatError reports a query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var params SearchParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "q", q, &params.Q); err != nil {
		return params, &InvalidParamFormatError{ParamName: "q", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "mode", q, &params.Mode); err != nil {
		return params, &InvalidParamFormatError{ParamName: "mode", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &params.Limit); err != nil {
		return params, &InvalidParamFormatError{ParamName: "limit", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "user_id", q, &params.UserID); err != nil {
		return params, &InvalidParamFormatError{ParamName: "user_id", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "rewrite", q, &params.Rewrite); err != nil {
		return params, &InvalidParamFormatError{ParamName: "rewrite", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "facet", q, &params.Facet); err != nil {
		return params, &InvalidParamFormatError{ParamName: "facet", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "filter", q, &params.Filter); err != nil {
		return params, &InvalidParamFormatError{ParamName: "filter", Err: err}
	}
	return params, nil
}

func bindSuggestParams(r *http.Request) (SuggestParams, error) {
	var params SuggestParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "q", q, &params.Q); err != nil {
		return params, &InvalidParamFormatError{ParamName: "q", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "user_id", q, &params.UserID); err != nil {
		return params, &InvalidParamFormatError{ParamName: "user_id", Err: err}
	}
	return params, nil
}

// parseFilterParams turns ["category:books", "category:music", "lang:en"]
// into {"category": ["books", "music"], "lang": ["en"]}.
func parseFilterParams(entries []string) (map[string][]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(entries))
	for _, e := range entries {
		field, value, ok := strings.Cut(e, ":")
		if !ok || field == "" || value == "" {
			return nil, fmt.Errorf("filter %q must have the form field:value", e)
		}
		out[field] = append(out[field], value)
	}
	return out, nil
}
