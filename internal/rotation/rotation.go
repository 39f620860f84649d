// Package rotation retries a quota-limited call across an ordered list of API keys.
package rotation

import (
	"context"
	"errors"
	"fmt"
)

// Credential is one opaque API key. Slice order is rotation order.
type Credential string

// Masked returns the key with everything but the last four characters hidden.
func (c Credential) Masked() string {
	if len(c) <= 4 {
		return "****"
	}
	return "****" + string(c[len(c)-4:])
}

// Kind tags the result of a request attempt or of a whole rotation.
type Kind int

const (
	Success Kind = iota
	QuotaExceeded
	OtherAPIError
	UnexpectedError
	// NoCredentials is returned without calling the request when the key list is empty.
	NoCredentials
	// KeysExhausted is the terminal quota outcome: every key reported QuotaExceeded.
	KeysExhausted
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case QuotaExceeded:
		return "quota_exceeded"
	case OtherAPIError:
		return "api_error"
	case UnexpectedError:
		return "unexpected_error"
	case NoCredentials:
		return "no_credentials"
	case KeysExhausted:
		return "keys_exhausted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrNoCredentials = errors.New("no API keys configured")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrKeysExhausted = errors.New("all API keys exhausted")
	ErrAPI           = errors.New("api call failed")
	ErrUnexpected    = errors.New("unexpected error")
)

// Outcome is the tagged result of a request. Payload is only meaningful on Success.
type Outcome[T any] struct {
	Kind     Kind
	Payload  T
	Message  string
	Attempts int
}

func Ok[T any](payload T) Outcome[T] {
	return Outcome[T]{Kind: Success, Payload: payload}
}

func Quota[T any](msg string) Outcome[T] {
	return Outcome[T]{Kind: QuotaExceeded, Message: msg}
}

func APIError[T any](msg string) Outcome[T] {
	return Outcome[T]{Kind: OtherAPIError, Message: msg}
}

func Unexpected[T any](msg string) Outcome[T] {
	return Outcome[T]{Kind: UnexpectedError, Message: msg}
}

// IsQuota reports whether the outcome belongs to the quota class.
func (o Outcome[T]) IsQuota() bool {
	return o.Kind == QuotaExceeded || o.Kind == KeysExhausted
}

// Err converts a failed outcome into an error wrapping one of the package sentinels.
// It returns nil on Success.
func (o Outcome[T]) Err() error {
	var base error
	switch o.Kind {
	case Success:
		return nil
	case QuotaExceeded:
		base = ErrQuotaExceeded
	case KeysExhausted:
		base = ErrKeysExhausted
	case NoCredentials:
		base = ErrNoCredentials
	case OtherAPIError:
		base = ErrAPI
	default:
		base = ErrUnexpected
	}
	if o.Message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, o.Message)
}

// Request performs one attempt with the given key.
type Request[T any] func(ctx context.Context, key Credential) Outcome[T]

// Attempt describes a finished try; Observer callbacks receive one per call.
type Attempt struct {
	Index   int
	Key     Credential
	Kind    Kind
	Message string
	// Next is the index the runner moves to after a quota failure, -1 otherwise.
	Next int
}

type Observer func(Attempt)

// Run calls req starting at creds[start], moving to the next key on QuotaExceeded.
// Each key is tried at most once. It returns the final outcome and the current
// index: the index that succeeded, the index that failed non-recoverably, or the
// index reached after the last rotation when every key is exhausted.
func Run[T any](ctx context.Context, creds []Credential, start int, req Request[T], observers ...Observer) (Outcome[T], int) {
	n := len(creds)
	if n == 0 {
		return Outcome[T]{Kind: NoCredentials}, start
	}
	idx := ((start % n) + n) % n

	var last Outcome[T]
	for budget, attempts := n, 0; budget > 0; budget-- {
		if err := ctx.Err(); err != nil {
			out := Unexpected[T](err.Error())
			out.Attempts = attempts
			return out, idx
		}

		out := req(ctx, creds[idx])
		attempts++
		out.Attempts = attempts

		a := Attempt{Index: idx, Key: creds[idx], Kind: out.Kind, Message: out.Message, Next: -1}
		if out.Kind != QuotaExceeded {
			notify(observers, a)
			return out, idx
		}
		idx = (idx + 1) % n
		a.Next = idx
		notify(observers, a)
		last = out
	}

	return Outcome[T]{
		Kind:     KeysExhausted,
		Message:  last.Message,
		Attempts: last.Attempts,
	}, idx
}

func notify(observers []Observer, a Attempt) {
	for _, o := range observers {
		if o != nil {
			o(a)
		}
	}
}
