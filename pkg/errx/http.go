package errx

// HTTPErrorResponse is the wire shape the HTTP layer returns for an
// *Error. Request-scoped fields like the request ID are attached by the
// server's error handler, not here.
type HTTPErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Type    string                 `json:"type"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToHTTPResponse converts the error to its wire shape. The underlying
// cause is deliberately omitted; it belongs in logs, not responses.
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Type:    string(e.Type),
		Status:  e.HTTPStatus,
		Details: e.Details,
	}
}
