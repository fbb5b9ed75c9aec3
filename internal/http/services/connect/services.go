// Package connect contains the services behind the client connect flow:
// invitation, authorization start, callback, ephemeral session, and
// access verification.
package connect

import (
	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/email"
	"github.com/authhub/authhub/internal/session"
	"github.com/authhub/authhub/internal/store/core"
)

// Deps carries everything the connect services need.
type Deps struct {
	Registry    *connectors.Registry
	Store       core.Store
	Sessions    *session.Store
	Signer      StateSigner
	Sink        TokenSink // nil = LogSink
	Invitations *email.Invitations
	BaseURL     string // public base URL of this service
	PickerURL   string // asset-picker UI the callback redirects to
}

// Services aggregates the connect domain services.
type Services struct {
	Requests RequestsService
	Start    StartService
	Callback CallbackService
	Session  SessionService
	Verify   VerifyService
}

// NewServices wires the aggregator.
func NewServices(d Deps) Services {
	return Services{
		Requests: NewRequestsService(d.Store, d.Invitations, d.BaseURL),
		Start:    NewStartService(d.Registry, d.Store, d.Signer),
		Callback: NewCallbackService(d.Registry, d.Sessions, d.Signer, d.Sink, d.PickerURL),
		Session:  NewSessionService(d.Sessions, d.Store),
		Verify:   NewVerifyService(d.Registry),
	}
}
