// Package tools adapts plain Go functions into sandbox-callable
// Starlark modules. A tool author registers named handlers; Module
// wraps them as a *starlarkstruct.Module an agent descriptor can hand
// to the sandbox's predeclared namespace, with its per-agent options
// read from the tool option vault (C8) rather than passed as an
// argument from sandboxed code.
package tools

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"agentrt/vault"
)

// Handler implements one tool function's business logic. args holds
// the call's keyword arguments already converted to Go values;
// options is this tool's vault-resolved configuration, read once per
// call.
type Handler func(ctx context.Context, args map[string]any, options map[string]any) (any, error)

// Tool is a named collection of handlers plus the vault binding that
// supplies their per-agent options.
type Tool struct {
	name     string
	vault    *vault.Vault
	handlers map[string]Handler
}

// New returns a Tool backed by v. v may be nil, in which case every
// handler observes an empty options map.
func New(name string, v *vault.Vault) *Tool {
	return &Tool{name: name, vault: v, handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for fn.
func (t *Tool) Register(fn string, h Handler) *Tool {
	t.handlers[fn] = h
	return t
}

// Module builds the starlarkstruct.Module the sandbox predeclares this
// tool's functions under. Every function takes only keyword arguments,
// matching the module-qualified call convention the prompt builder
// documents.
func (t *Tool) Module() *starlarkstruct.Module {
	members := make(starlark.StringDict, len(t.handlers))
	for name, handler := range t.handlers {
		members[name] = t.builtin(name, handler)
	}
	return &starlarkstruct.Module{Name: t.name, Members: members}
}

func (t *Tool) builtin(name string, handler Handler) starlark.Value {
	qualified := t.name + "." + name
	return starlark.NewBuiltin(qualified, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s: only keyword arguments are accepted", qualified)
		}
		goArgs, err := kwargsToGo(kwargs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", qualified, err)
		}

		options := map[string]any{}
		if t.vault != nil {
			if resolved := t.vault.Get(t.name); resolved != nil {
				options = resolved
			}
		}

		result, err := handler(context.Background(), goArgs, options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", qualified, err)
		}
		return goToStarlark(result)
	})
}

func kwargsToGo(kwargs []starlark.Tuple) (map[string]any, error) {
	out := make(map[string]any, len(kwargs))
	for _, pair := range kwargs {
		key, ok := starlark.AsString(pair[0])
		if !ok {
			return nil, fmt.Errorf("keyword argument name must be a string, got %s", pair[0].Type())
		}
		value, err := starlarkToGo(pair[1])
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func starlarkToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s does not fit in int64", val.String())
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		out := make([]any, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			elem, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, 0, len(val))
		for _, elem := range val {
			converted, err := starlarkToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("dict key must be a string, got %s", item[0].Type())
			}
			value, err := starlarkToGo(item[1])
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s", v.Type())
	}
}

func goToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case []any:
		elems := make([]starlark.Value, 0, len(val))
		for _, item := range val {
			converted, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			elems = append(elems, converted)
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for key, item := range val {
			converted, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), converted); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported handler return type %T", v)
	}
}
