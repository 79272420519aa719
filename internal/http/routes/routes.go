// Package routes holds the route table of the service.
package routes

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/hello-api/internal/http/health"
	"github.com/janisto/hello-api/internal/http/index"
)

const (
	apiTitle = "Hello API"
	// DocsPath serves the interactive API documentation.
	DocsPath = "/api-docs"
	// OpenAPIPath is the prefix of the OpenAPI documents (.json, .yaml, -3.0.json, -3.0.yaml).
	OpenAPIPath = "/openapi"
	// SchemasPath serves the individual JSON schemas.
	SchemasPath = "/schemas"
)

// NewAPI mounts a huma API on router. Response bodies carry no $schema link
// field, and every JSON request or response in the OpenAPI document is also
// advertised as CBOR.
func NewAPI(router chi.Router, version string) huma.API {
	cfg := huma.DefaultConfig(apiTitle, version)
	cfg.DocsPath = DocsPath
	cfg.OpenAPIPath = OpenAPIPath
	cfg.SchemasPath = SchemasPath
	cfg.CreateHooks = nil
	api := humachi.New(router, cfg)

	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)
	return api
}

func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API) {
	index.Register(api)
	health.Register(api)
}

// Reserved reports whether path is taken by an operation or by the generated
// documentation, so no other handler may be mounted there.
func Reserved(path string) bool {
	switch path {
	case index.Path, health.Path, SchemasPath:
		return true
	}
	return strings.HasPrefix(path, OpenAPIPath) ||
		strings.HasPrefix(path, DocsPath) ||
		strings.HasPrefix(path, SchemasPath+"/")
}
