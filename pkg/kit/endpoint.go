package kit

import (
	"context"
	"fmt"
)

// Endpoint is one catalog operation, shared by the HTTP routes and the MCP
// tools. Transports decode into a request value and hand it over.
type Endpoint func(ctx context.Context, request any) (response any, err error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain applies middlewares outermost first:
// Chain(a, b, c)(ep) == a(b(c(ep))).
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}

// Typed adapts fn to an Endpoint whose request must be a Req. A request of
// any other type fails without calling fn.
func Typed[Req, Resp any](fn func(context.Context, Req) (Resp, error)) Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(Req)
		if !ok {
			return nil, fmt.Errorf("kit: unexpected request type %T", request)
		}
		return fn(ctx, req)
	}
}
