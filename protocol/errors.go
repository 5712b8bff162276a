package protocol

import "fmt"

// DecodeErrorKind classifies codec failures. Decode errors are always fatal
// for the record being decoded and are never silently recovered: skipping a
// malformed record would desynchronize downstream builder state.
type DecodeErrorKind string

const (
	// MissingDiscriminator indicates the JSON object carried no "type" (or
	// "role") field.
	MissingDiscriminator DecodeErrorKind = "missing_discriminator"
	// UnknownDiscriminator indicates the discriminator named no known variant.
	// Unknown variants are a hard error so that adding a new wire event
	// without updating a consumer is detectable rather than silently ignored.
	UnknownDiscriminator DecodeErrorKind = "unknown_discriminator"
	// MalformedVariant indicates the discriminator was recognized but the
	// remaining payload did not satisfy the variant's schema.
	MalformedVariant DecodeErrorKind = "malformed_variant"
)

// DecodeError reports a codec failure with enough context to diagnose the
// offending record.
type DecodeError struct {
	// Kind classifies the failure.
	Kind DecodeErrorKind
	// Discriminator is the offending discriminator value, when one was read.
	Discriminator string
	// cause is the underlying error, if any.
	cause error
}

// Error implements error.
func (e *DecodeError) Error() string {
	switch {
	case e.Discriminator != "" && e.cause != nil:
		return fmt.Sprintf("decode %s: %s: %s", e.Discriminator, e.Kind, e.cause)
	case e.Discriminator != "":
		return fmt.Sprintf("decode %s: %s", e.Discriminator, e.Kind)
	case e.cause != nil:
		return fmt.Sprintf("decode: %s: %s", e.Kind, e.cause)
	default:
		return fmt.Sprintf("decode: %s", e.Kind)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *DecodeError) Unwrap() error { return e.cause }

func decodeErr(kind DecodeErrorKind, discriminator string, cause error) *DecodeError {
	return &DecodeError{Kind: kind, Discriminator: discriminator, cause: cause}
}
