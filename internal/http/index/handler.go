// Package index serves the greeting at the API root.
package index

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/hello-api/internal/platform/logging"
)

// Path is the route of the greeting.
const Path = "/"

const greeting = "Hello, World!"

// Register wires the index route into the provided API router.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-index",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Get greeting",
		Description: "Returns a static greeting.",
		Tags:        []string{"Greeting"},
	}, getHandler)
}

func getHandler(ctx context.Context, _ *struct{}) (*Output, error) {
	applog.LogInfo(ctx, "index", zap.String("path", Path))
	return &Output{Body: Greeting{Message: greeting}}, nil
}
