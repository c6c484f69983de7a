package tx

import (
	"errors"
	"net/http"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/denom"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
)

// Result classifies the outcome of applying a signed request. Codes are
// stable across releases; clients switch on the string form.
type Result int

const (
	Success Result = iota
	EncodingError
	InvalidSignature
	SignerMismatch
	ExpiredRequest
	InsufficientBalance
	NonceMismatch
	Overflow
	InvalidAmount
	InvalidDenom
	DuplicateDenom
	NotMintable
	NotBurnable
	Unauthorized
	PairExists
	PoolNotFound
	PoolDrained
	SlippageExceeded
	Internal
)

var resultNames = map[Result]string{
	Success:             "Success",
	EncodingError:       "EncodingError",
	InvalidSignature:    "InvalidSignature",
	SignerMismatch:      "SignerMismatch",
	ExpiredRequest:      "ExpiredRequest",
	InsufficientBalance: "InsufficientBalance",
	NonceMismatch:       "NonceMismatch",
	Overflow:            "Overflow",
	InvalidAmount:       "InvalidAmount",
	InvalidDenom:        "InvalidDenom",
	DuplicateDenom:      "DuplicateDenom",
	NotMintable:         "NotMintable",
	NotBurnable:         "NotBurnable",
	Unauthorized:        "Unauthorized",
	PairExists:          "PairExists",
	PoolNotFound:        "PoolNotFound",
	PoolDrained:         "PoolDrained",
	SlippageExceeded:    "SlippageExceeded",
	Internal:            "Internal",
}

func (r Result) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return "Unknown"
}

// IsSuccess reports whether the request was applied.
func (r Result) IsSuccess() bool { return r == Success }

// HTTPStatus maps a result to the status code the RPC surface returns.
func (r Result) HTTPStatus() int {
	switch r {
	case Success:
		return http.StatusOK
	case PoolNotFound:
		return http.StatusNotFound
	case InvalidSignature, SignerMismatch, ExpiredRequest:
		return http.StatusUnauthorized
	case Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// FromError maps a rejection from any core component onto its result code.
// Unknown errors classify as Internal.
func FromError(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrEncoding):
		return EncodingError
	case errors.Is(err, ErrInvalidSignature):
		return InvalidSignature
	case errors.Is(err, ErrSignerMismatch):
		return SignerMismatch
	case errors.Is(err, ErrExpiredRequest):
		return ExpiredRequest
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return InsufficientBalance
	case errors.Is(err, ledger.ErrNonceMismatch):
		return NonceMismatch
	case errors.Is(err, ledger.ErrOverflow), errors.Is(err, amm.ErrArithmeticOverflow):
		return Overflow
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, amm.ErrInvalidAmount),
		errors.Is(err, registry.ErrInvalidAmount), errors.Is(err, amount.ErrSyntax),
		errors.Is(err, amount.ErrRange),
		errors.Is(err, amm.ErrInvalidFee), errors.Is(err, amm.ErrIdenticalDenoms):
		return InvalidAmount
	case errors.Is(err, amm.ErrInvalidDenom), errors.Is(err, amm.ErrUnknownPairDenom),
		errors.Is(err, amm.ErrPoolDenomNotAsset), errors.Is(err, denom.ErrInvalidDenom),
		errors.Is(err, denom.ErrInvalidSymbol), errors.Is(err, registry.ErrUnknownDenom):
		return InvalidDenom
	case errors.Is(err, registry.ErrDuplicateDenom):
		return DuplicateDenom
	case errors.Is(err, registry.ErrNotMintable):
		return NotMintable
	case errors.Is(err, registry.ErrNotBurnable):
		return NotBurnable
	case errors.Is(err, registry.ErrUnauthorized):
		return Unauthorized
	case errors.Is(err, amm.ErrPairExists):
		return PairExists
	case errors.Is(err, amm.ErrPoolNotFound):
		return PoolNotFound
	case errors.Is(err, amm.ErrPoolDrained):
		return PoolDrained
	case errors.Is(err, amm.ErrSlippageExceeded):
		return SlippageExceeded
	default:
		return Internal
	}
}
