package contract

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"forward-visa/internal/forward"
)

//go:embed forward.yaml
var forwardSpec []byte

type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// Default returns a validator for the built-in Forward API description.
func Default() (*Validator, error) {
	return LoadFromBytes(forwardSpec)
}

func LoadFromFile(path string) (*Validator, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return build(doc)
}

func LoadFromBytes(b []byte) (*Validator, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromData(b)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return build(doc)
}

func build(doc *openapi3.T) (*Validator, error) {
	// Strict: if the spec is invalid, fail fast with a clear message.
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate spec: %w", err)
	}
	r, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	return &Validator{doc: doc, router: r}, nil
}

func (v *Validator) Title() string {
	if v.doc.Info == nil {
		return ""
	}
	return v.doc.Info.Title
}

// ValidateResponse validates (method, url, status, headers, body) against the spec.
// Returns the matched path template.
func (v *Validator) ValidateResponse(
	ctx context.Context,
	method string,
	rawURL string,
	status int,
	header http.Header,
	body []byte,
) (routePath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req := &http.Request{
		Method: method,
		URL:    u,
		Header: http.Header{"Content-Type": []string{"application/json"}},
	}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return "", fmt.Errorf("route not found: %w", err)
	}

	rvi := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options:    &openapi3filter.Options{},
	}
	rsp := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: rvi,
		Status:                 status,
		Header:                 header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options:                &openapi3filter.Options{IncludeResponseStatus: true},
	}
	if err := openapi3filter.ValidateResponse(ctx, rsp); err != nil {
		return route.Path, err
	}
	return route.Path, nil
}

// ForwardPath is the operation path of the forward call in the description.
const ForwardPath = "/forward"

// CheckForward validates a Forward API answer to POST rawURL. The configured
// URL may carry a gateway prefix or a different path, so the response is
// always matched against the ForwardPath operation. A violation is reported
// as a *forward.ResponseShapeError.
func (v *Validator) CheckForward(ctx context.Context, rawURL string, status int, header http.Header, body []byte) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse forward url: %w", err)
	}
	u.Path, u.RawPath = ForwardPath, ""
	if _, err := v.ValidateResponse(ctx, http.MethodPost, u.String(), status, header, body); err != nil {
		return &forward.ResponseShapeError{Path: "$", Msg: "contract violation", Err: err}
	}
	return nil
}
