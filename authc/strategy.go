package authc

import (
	"context"
	"errors"
	"fmt"
)

// Attempt bundles a submitted token with the ordered realms to try.
type Attempt struct {
	Token  Token
	Realms []Realm
}

// A Strategy combines the verdicts of multiple realms into a single
// aggregated account or a classified failure. Implementations must try
// realms deterministically, preserving Attempt order.
type Strategy interface {
	Execute(ctx context.Context, attempt Attempt) (*Account, error)
}

// FirstSuccessfulStrategy stops at the first realm that authenticates the
// token; realms after it are never consulted. An individual realm's failure
// is not fatal: the most specific failure seen is surfaced only when every
// realm fails.
//
// This is the default strategy.
type FirstSuccessfulStrategy struct{}

var _ Strategy = (*FirstSuccessfulStrategy)(nil)

func (s *FirstSuccessfulStrategy) Execute(ctx context.Context, attempt Attempt) (*Account, error) {
	var lastErr error

	for _, r := range attempt.Realms {
		acct, err := r.AuthenticateAccount(ctx, attempt.Token)
		if err != nil {
			if errors.Is(err, ErrIncorrectCredentials) || errors.Is(err, ErrAccountLocked) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if acct != nil {
			return acct, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrUnknownAccount
}

// AllSuccessfulStrategy requires every realm in the attempt to authenticate
// the token. The first realm's account is the aggregate; later realms'
// failure histories are merged into it. Any single failure fails the
// attempt.
type AllSuccessfulStrategy struct{}

var _ Strategy = (*AllSuccessfulStrategy)(nil)

func (s *AllSuccessfulStrategy) Execute(ctx context.Context, attempt Attempt) (*Account, error) {
	var aggregate *Account

	for _, r := range attempt.Realms {
		acct, err := r.AuthenticateAccount(ctx, attempt.Token)
		if err != nil {
			return nil, err
		}
		if acct == nil {
			return nil, fmt.Errorf("%w: realm %q", ErrUnknownAccount, r.Name())
		}
		if aggregate == nil {
			aggregate = acct
		} else {
			aggregate.Merge(acct)
		}
	}

	if aggregate == nil {
		return nil, ErrUnknownAccount
	}
	return aggregate, nil
}
