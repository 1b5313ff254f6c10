package jmte

import "fmt"

// ArrayToModel names each argument by its 1-based position, optionally with
// a prefix: ArrayToModel("arg", a, b) gives {"arg1": a, "arg2": b}.
func ArrayToModel(prefix string, args ...any) map[string]any {
	model := make(map[string]any, len(args))
	for i, arg := range args {
		model[fmt.Sprintf("%s%d", prefix, i+1)] = arg
	}
	return model
}

// ToModel builds a model from alternating names and values.
func ToModel(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, NewConfigurationError("pairs", fmt.Sprintf("expected name/value pairs, got %d arguments", len(pairs)))
	}
	model := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, NewConfigurationError("pairs", fmt.Sprintf("argument %d must be a string name, got %T", i, pairs[i]))
		}
		model[name] = pairs[i+1]
	}
	return model, nil
}

// MergeLists zips parallel lists into one list of models, so that
// MergeLists([]string{"a", "b"}, as, bs)[i] is {"a": as[i], "b": bs[i]}.
// Every list must have the same length and there must be one name per list.
func MergeLists(names []string, lists ...[]any) ([]map[string]any, error) {
	if len(lists) == 0 {
		return []map[string]any{}, nil
	}
	if len(names) != len(lists) {
		return nil, NewConfigurationError("names",
			fmt.Sprintf("got %d names for %d lists", len(names), len(lists)))
	}
	size := len(lists[0])
	for i, list := range lists[1:] {
		if len(list) != size {
			return nil, NewConfigurationError("lists",
				fmt.Sprintf("list %q has %d elements, expected %d", names[i+1], len(list), size))
		}
	}

	merged := make([]map[string]any, size)
	for i := range merged {
		row := make(map[string]any, len(names))
		for j, name := range names {
			row[name] = lists[j][i]
		}
		merged[i] = row
	}
	return merged, nil
}

// Format expands pattern with its arguments named 1, 2, 3 and so on:
// Format("${1} and ${2}", "a", "b") returns "a and b".
func Format(pattern string, args ...any) (string, error) {
	return DefaultEngine.Transform(pattern, ArrayToModel("", args...))
}

// FormatNamed expands pattern with a model built from name/value pairs.
func FormatNamed(pattern string, pairs ...any) (string, error) {
	model, err := ToModel(pairs...)
	if err != nil {
		return "", err
	}
	return DefaultEngine.Transform(pattern, model)
}
