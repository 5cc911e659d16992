package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidRequest is matched by every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// InvalidRequestError lists every field problem found in one request.
type InvalidRequestError struct {
	Problems *multierror.Error
}

func (e *InvalidRequestError) Error() string {
	if e.Problems == nil || len(e.Problems.Errors) == 0 {
		return ErrInvalidRequest.Error()
	}
	msgs := make([]string, 0, len(e.Problems.Errors))
	for _, p := range e.Problems.Errors {
		msgs = append(msgs, p.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrInvalidRequest) succeed.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func (e *InvalidRequestError) Unwrap() error {
	if e.Problems == nil {
		return nil
	}
	return e.Problems.ErrorOrNil()
}

// Fields returns the individual problems.
func (e *InvalidRequestError) Fields() []error {
	if e.Problems == nil {
		return nil
	}
	return e.Problems.Errors
}

// FieldError is one invalid request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// problems accumulates field errors while a request is parsed.
type problems struct {
	errs *multierror.Error
}

func (p *problems) add(field, format string, args ...any) {
	p.errs = multierror.Append(p.errs, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (p *problems) err() error {
	if p.errs.ErrorOrNil() == nil {
		return nil
	}
	return &InvalidRequestError{Problems: p.errs}
}
