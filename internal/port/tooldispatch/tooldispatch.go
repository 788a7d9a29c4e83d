package tooldispatch

import "context"

type Call struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, call Call) (any, error)
}
