package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the tool boundary can describe it.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindInvalidTimeFormat
	KindInvalidRange
	KindUnsupportedFrequency
	KindUnsupportedMarket
	KindUnsupportedQuoteAsset
	KindMissingCredential
	KindInvalidSymbol
	KindTimeout
	KindProviderError
	KindMalformedResponse
)

var kindNames = map[Kind]string{
	KindUnknown:               "Unknown",
	KindInvalidArgument:       "InvalidArgument",
	KindInvalidTimeFormat:     "InvalidTimeFormat",
	KindInvalidRange:          "InvalidRange",
	KindUnsupportedFrequency:  "UnsupportedFrequency",
	KindUnsupportedMarket:     "UnsupportedMarket",
	KindUnsupportedQuoteAsset: "UnsupportedQuoteAsset",
	KindMissingCredential:     "MissingCredential",
	KindInvalidSymbol:         "InvalidSymbol",
	KindTimeout:               "Timeout",
	KindProviderError:         "ProviderError",
	KindMalformedResponse:     "MalformedResponse",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the typed failure returned by normalizers and adapters.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrInvalidTimeFormat     = &Error{Kind: KindInvalidTimeFormat}
	ErrInvalidRange          = &Error{Kind: KindInvalidRange}
	ErrUnsupportedFrequency  = &Error{Kind: KindUnsupportedFrequency}
	ErrUnsupportedMarket     = &Error{Kind: KindUnsupportedMarket}
	ErrUnsupportedQuoteAsset = &Error{Kind: KindUnsupportedQuoteAsset}
	ErrMissingCredential     = &Error{Kind: KindMissingCredential}
	ErrInvalidSymbol         = &Error{Kind: KindInvalidSymbol}
	ErrTimeout               = &Error{Kind: KindTimeout}
	ErrProvider              = &Error{Kind: KindProviderError}
	ErrMalformedResponse     = &Error{Kind: KindMalformedResponse}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
