// Package connect holds the HTTP controllers for the connect flow.
package connect

import (
	svc "github.com/authhub/authhub/internal/http/services/connect"
)

// Controllers aggregates the connect controllers.
type Controllers struct {
	Requests *RequestsController
	Start    *StartController
	Callback *CallbackController
	Session  *SessionController
	Verify   *VerifyController
}

// NewControllers wires the controllers over the service aggregator.
func NewControllers(services svc.Services, errorURL string) *Controllers {
	return &Controllers{
		Requests: NewRequestsController(services.Requests),
		Start:    NewStartController(services.Start),
		Callback: NewCallbackController(services.Callback, errorURL),
		Session:  NewSessionController(services.Session),
		Verify:   NewVerifyController(services.Verify),
	}
}
