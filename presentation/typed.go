package presentation

import (
	"fmt"

	"github.com/cyphal-go/transport"
)

// Decoder converts a raw transfer payload into an application type,
// per spec.md's out-of-scope "wire-format codec for application
// datatypes" — the core names the contract, decoding itself is an
// external collaborator supplied by generated or hand-written code.
type Decoder[T any] func(payload []byte) (T, error)

// ResponsePromise is the typed counterpart to RawResponsePromise,
// decoding the response payload with a caller-supplied Decoder. A
// decode failure surfaces as transport.ErrDecode, per spec.md §7's
// error taxonomy.
type ResponsePromise[T any] struct {
	raw     *RawResponsePromise
	decode  Decoder[T]
}

// NewResponsePromise wraps raw with decode. Typically used immediately
// after Client.Call.
func NewResponsePromise[T any](raw *RawResponsePromise, decode Decoder[T]) *ResponsePromise[T] {
	return &ResponsePromise[T]{raw: raw, decode: decode}
}

// State forwards to the underlying raw promise.
func (p *ResponsePromise[T]) State() State { return p.raw.State() }

// GetRequestTime forwards to the underlying raw promise.
func (p *ResponsePromise[T]) GetRequestTime() transport.TimePoint { return p.raw.GetRequestTime() }

// SetDeadline forwards to the underlying raw promise.
func (p *ResponsePromise[T]) SetDeadline(tp transport.TimePoint) { p.raw.SetDeadline(tp) }

// GetResult peeks the decoded result, non-consuming.
func (p *ResponsePromise[T]) GetResult() (T, error, bool) {
	tr, err, ok := p.raw.GetResult()
	return p.decodeOrZero(tr, err, ok)
}

// FetchResult consumes the decoded result.
func (p *ResponsePromise[T]) FetchResult() (T, error, bool) {
	tr, err, ok := p.raw.FetchResult()
	return p.decodeOrZero(tr, err, ok)
}

func (p *ResponsePromise[T]) decodeOrZero(tr transport.Transfer, err error, ok bool) (T, error, bool) {
	var zero T
	if !ok {
		return zero, nil, false
	}
	if err != nil {
		return zero, err, true
	}
	v, decErr := p.decode(tr.Payload)
	if decErr != nil {
		return zero, fmt.Errorf("%w: %v", transport.ErrDecode, decErr), true
	}
	return v, nil, true
}

// SetCallback installs fn to fire exactly once with the decoded result,
// per RawResponsePromise.SetCallback's semantics.
func (p *ResponsePromise[T]) SetCallback(fn func(T, error)) {
	p.raw.SetCallback(func(tr transport.Transfer, err error) {
		v, decErr, _ := p.decodeOrZero(tr, err, true)
		fn(v, decErr)
	})
}
