package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/mitchellh/mapstructure"
)

// Validator is implemented by request types that check their own fields.
// A joined error (errors.Join) is reported as one problem per member.
type Validator interface {
	Validate(tctx Context) error
}

// Handler runs a tool on a decoded request. Returned errors become failed
// Results unless ctx has been cancelled.
type Handler[Req any] func(ctx context.Context, tctx Context, req Req) (string, error)

// Base implements Tool for a typed request. It centralizes argument
// decoding, validation, timing and result construction so each concrete
// tool is only a request struct and a Handler.
type Base[Req any] struct {
	name        string
	description string
	params      *Schema
	risk        risk.Class
	handler     Handler[Req]
}

// NewBase creates a typed tool.
func NewBase[Req any](name, description string, params *Schema, class risk.Class, handler Handler[Req]) *Base[Req] {
	if handler == nil {
		panic("handler is required")
	}
	return &Base[Req]{
		name:        name,
		description: description,
		params:      params,
		risk:        class,
		handler:     handler,
	}
}

func (b *Base[Req]) Name() string        { return b.name }
func (b *Base[Req]) Description() string { return b.description }
func (b *Base[Req]) Risk() risk.Class    { return b.risk }

func (b *Base[Req]) Declaration() Declaration {
	return Declaration{
		Name:        b.name,
		Description: b.description,
		Parameters:  b.params,
	}
}

// Validate decodes args and runs the request's own checks.
func (b *Base[Req]) Validate(_ context.Context, args json.RawMessage, tctx Context) Validation {
	_, v := b.decode(args, tctx)
	return v
}

// Execute decodes, validates and runs the handler.
func (b *Base[Req]) Execute(ctx context.Context, args json.RawMessage, tctx Context) (Result, error) {
	start := time.Now()
	finish := func(r Result) Result {
		r.ToolCallID = tctx.ToolCallID
		r.Duration = time.Since(start)
		return r
	}

	req, v := b.decode(args, tctx)
	if !v.Valid {
		return finish(Failed(v.Error)), nil
	}

	out, err := b.handler(ctx, tctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return finish(Failed(err.Error())), nil
	}
	return finish(Succeeded(out)), nil
}

func (b *Base[Req]) decode(args json.RawMessage, tctx Context) (Req, Validation) {
	var req Req

	raw := map[string]any{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &raw); err != nil {
			return req, Invalid(fmt.Sprintf("%s: arguments must be a JSON object: %v", ErrInvalidArguments, err))
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &req,
	})
	if err != nil {
		return req, Invalid(err.Error())
	}
	if err := dec.Decode(raw); err != nil {
		return req, Invalid(fmt.Sprintf("%s: %v", ErrInvalidArguments, err))
	}

	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(tctx); err != nil {
			return req, Invalid(problems(err)...)
		}
	}
	return req, Valid()
}

func problems(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			if e != nil {
				out = append(out, e.Error())
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{err.Error()}
}
