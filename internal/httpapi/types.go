package httpapi

type temperatureResponse struct {
	Temperature float64 `json:"temperature"`
}

type stateResponse struct {
	State string `json:"state"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
