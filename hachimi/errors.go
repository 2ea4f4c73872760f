package hachimi

import "errors"

// Payload codec errors
var (
	ErrPayloadTooShort     = errors.New("payload too short")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrDanglingBits        = errors.New("dangling bits")
	ErrCompressionFailed   = errors.New("compression failed")
	ErrDecompressionFailed = errors.New("decompression failed")
	ErrPayloadTooLarge     = errors.New("payload exceeds limit")
)

// Token errors
var (
	ErrValueOutOfRange     = errors.New("value out of range")
	ErrVariantOverflow     = errors.New("variant index overflow")
	ErrSegmentationFailed  = errors.New("no valid segmentation")
	ErrTooFewTokens        = errors.New("too few tokens")
	ErrUnknownLeadToken    = errors.New("unknown lead token")
	ErrHeaderTokenInvalid  = errors.New("header token invalid")
	ErrHeaderOutOfRange    = errors.New("header out of range")
	ErrPayloadTokenInvalid = errors.New("payload token invalid")
	ErrEmptyPayload        = errors.New("no payload chunks")
	ErrSelfCheckFailed     = errors.New("self-check failed")
)

// Construction errors. These indicate a vocabulary or weight
// misconfiguration and are never produced by a translate call.
var (
	ErrNoCollisionCategory = errors.New("no category to break collision")
	ErrUnableToDeduplicate = errors.New("unable to deduplicate variants")
	ErrEmptyBasePool       = errors.New("base pool is empty")
	ErrLeadNotInBase       = errors.New("lead word not in base pool")
	ErrUnknownRole         = errors.New("unknown role")
)
