package modelfile

import (
	"fmt"

	"go.starlark.net/starlark"
)

// decodeStarlark executes a Starlark script and exports its global
// variables. Globals starting with an underscore and functions are skipped.
func decodeStarlark(src []byte, name string) (map[string]any, error) {
	thread := &starlark.Thread{Name: "jmte-model"}
	globals, err := starlark.ExecFile(thread, name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}

	model := make(map[string]any, len(globals))
	for key, value := range globals {
		if !isExportableKey(key) {
			continue
		}
		if _, callable := value.(starlark.Callable); callable {
			continue
		}
		model[key] = fromStarlark(value)
	}
	return model, nil
}

func isExportableKey(key string) bool {
	return key != "" && key[0] != '_'
}

// fromStarlark converts a Starlark value to plain Go values.
func fromStarlark(val starlark.Value) any {
	if val == nil || val == starlark.None {
		return nil
	}

	switch v := val.(type) {
	case starlark.String:
		return string(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i
		}
		// For very large integers, convert to string
		return v.String()
	case starlark.Float:
		return float64(v)
	case starlark.Bool:
		return bool(v)
	case *starlark.List:
		items := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = fromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromStarlark(item)
		}
		return items
	case *starlark.Dict:
		dict := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			if keyStr, ok := item[0].(starlark.String); ok {
				dict[string(keyStr)] = fromStarlark(item[1])
			} else {
				dict[item[0].String()] = fromStarlark(item[1])
			}
		}
		return dict
	default:
		return val.String()
	}
}
