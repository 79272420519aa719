package health

// Status models the liveness payload.
type Status struct {
	Status string `json:"status" doc:"Service status" example:"ok"`
}

// Output is the response of the health operation.
type Output struct {
	Body Status
}
