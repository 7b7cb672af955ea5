// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The last dotted
// segment is the reason and drives classification and HTTP status mapping.
type Code string

const (
	CodeIndexRecordInvalid     Code = "index.record.invalid_input"
	CodeIndexQueryInvalid      Code = "index.query.invalid_input"
	CodeIndexDimensionMismatch Code = "index.vector.dimension_mismatch"
	CodeIndexRebuildConflict   Code = "index.rebuild.conflict"
	CodeIndexRebuildInvalid    Code = "index.rebuild.invalid_input"
	CodeIndexClusterInvalid    Code = "index.cluster.invalid_input"
	CodeIndexStorageFailure    Code = "index.storage.failure"

	CodeProviderUnavailable     Code = "provider.embedding.unavailable"
	CodeProviderTimeout         Code = "provider.embedding.timeout"
	CodeProviderResponseInvalid Code = "provider.embedding.invalid_format"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid_input"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLISetupFailure   Code = "cli.setup.failure"
	CodeCLIRequestFailure Code = "cli.request.failure"
	CodeCLIInputInvalid   Code = "cli.input.invalid_input"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldRecordID(value int64) Attr {
	return Field("record_id", value)
}

func FieldGeneration(value string) Attr {
	return Field("generation", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsInvalidInput reports whether the caller supplied malformed or
// insufficient input. Not retryable without changing the request.
func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsProviderUnavailable reports whether the embedding capability is down.
// Retryable after provider recovery.
func IsProviderUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

// IsDimensionMismatch reports version skew between stored vectors and the
// configured model. A full rebuild is required to resolve it.
func IsDimensionMismatch(err error) bool {
	return reason(CodeOf(err)) == "dimension_mismatch"
}

// IsRebuildInProgress reports contention with an in-flight rebuild.
// Retryable after backoff.
func IsRebuildInProgress(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// IsTimeout reports a bounded wait that was exceeded. Retryable.
func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func HTTPStatus(err error) int {
	switch {
	case IsRebuildInProgress(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsDimensionMismatch(err):
		return http.StatusUnprocessableEntity
	case IsProviderUnavailable(err):
		return http.StatusServiceUnavailable
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
