package index

// Greeting models the greeting payload.
type Greeting struct {
	Message string `json:"message" doc:"Greeting message" example:"Hello, World!"`
}

// Output is the response of the index operation.
type Output struct {
	Body Greeting
}
