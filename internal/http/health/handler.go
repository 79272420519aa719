// Package health serves the liveness probe.
package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Path is the route of the liveness probe.
const Path = "/health"

const statusOK = "ok"

// Register wires the health route into the provided API router.
// The check is unconditional and consults no internal state.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Health check",
		Description: "Reports that the service is alive.",
		Tags:        []string{"Health"},
	}, getHandler)
}

func getHandler(_ context.Context, _ *struct{}) (*Output, error) {
	return &Output{Body: Status{Status: statusOK}}, nil
}
