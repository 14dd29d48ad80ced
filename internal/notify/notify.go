// Package notify implements the notification-registration endpoints,
// spec §4.7: plain address registration/deregistration against a
// sender's token identity, and push-notification registration keyed
// by (service, registrationId). Both are thin, validate-then-write
// operations; neither consults the chain or the oracles.
package notify

import (
	"context"

	"github.com/tokeneth/eth-gateway/internal/apierr"
	"github.com/tokeneth/eth-gateway/internal/validate"
)

// Ledger is the subset of the relational store this package needs.
type Ledger interface {
	RegisterAddresses(ctx context.Context, tokenID string, addresses []string) error
	DeregisterAddresses(ctx context.Context, tokenID string, addresses []string) error
	RegisterPushNotification(ctx context.Context, service, registrationID, tokenID string) error
	DeregisterPushNotification(ctx context.Context, service, registrationID, tokenID string) error
}

// Registrar wires the notification-registration operations.
type Registrar struct {
	ledger Ledger
}

// New builds a Registrar.
func New(ledger Ledger) *Registrar {
	return &Registrar{ledger: ledger}
}

// validateAddresses rejects an empty list and any address that fails
// syntactic validation, per spec §4.1/§4.7.
func validateAddresses(addresses []string) error {
	if len(addresses) == 0 {
		return apierr.ErrBadArguments()
	}
	for _, a := range addresses {
		if _, ok := validate.Address(a); !ok {
			return apierr.ErrInvalidAddress()
		}
	}
	return nil
}

// RegisterAddresses inserts (tokenID, address) pairs with
// conflict-ignore semantics.
func (r *Registrar) RegisterAddresses(ctx context.Context, tokenID string, addresses []string) error {
	if err := validateAddresses(addresses); err != nil {
		return err
	}
	if err := r.ledger.RegisterAddresses(ctx, tokenID, addresses); err != nil {
		return apierr.ErrUnexpected(err)
	}
	return nil
}

// DeregisterAddresses deletes the rows matching tokenID AND an
// address in addresses.
func (r *Registrar) DeregisterAddresses(ctx context.Context, tokenID string, addresses []string) error {
	if err := validateAddresses(addresses); err != nil {
		return err
	}
	if err := r.ledger.DeregisterAddresses(ctx, tokenID, addresses); err != nil {
		return apierr.ErrUnexpected(err)
	}
	return nil
}

// RegisterPushNotification upserts a (service, registrationID) ->
// tokenID mapping.
func (r *Registrar) RegisterPushNotification(ctx context.Context, service, registrationID, tokenID string) error {
	if registrationID == "" {
		return apierr.ErrBadArguments()
	}
	if err := r.ledger.RegisterPushNotification(ctx, service, registrationID, tokenID); err != nil {
		return apierr.ErrUnexpected(err)
	}
	return nil
}

// DeregisterPushNotification deletes the row matching service,
// registrationID, and tokenID.
func (r *Registrar) DeregisterPushNotification(ctx context.Context, service, registrationID, tokenID string) error {
	if registrationID == "" {
		return apierr.ErrBadArguments()
	}
	if err := r.ledger.DeregisterPushNotification(ctx, service, registrationID, tokenID); err != nil {
		return apierr.ErrUnexpected(err)
	}
	return nil
}
