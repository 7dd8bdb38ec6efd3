package protocol

import "math"

// MissingParamError reports an absent or mistyped request parameter.
// Its message is user-facing and returned verbatim to clients.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return "Отсутствует параметр " + e.Name
}

// StringParam extracts a required string parameter.
func (r Request) StringParam(name string) (string, error) {
	v, ok := r.Params[name]
	if !ok {
		return "", &MissingParamError{Name: name}
	}
	s, ok := v.(string)
	if !ok {
		return "", &MissingParamError{Name: name}
	}
	return s, nil
}

// IntParam extracts a required integer parameter. JSON numbers decode
// as float64; only integral values are accepted.
func (r Request) IntParam(name string) (int, error) {
	v, ok := r.Params[name]
	if !ok {
		return 0, &MissingParamError{Name: name}
	}
	n, ok := narrowInt(v)
	if !ok {
		return 0, &MissingParamError{Name: name}
	}
	return n, nil
}

// IntParamDefault extracts an optional integer parameter, returning def
// when absent. A present but mistyped value is still an error.
func (r Request) IntParamDefault(name string, def int) (int, error) {
	v, ok := r.Params[name]
	if !ok {
		return def, nil
	}
	n, ok := narrowInt(v)
	if !ok {
		return 0, &MissingParamError{Name: name}
	}
	return n, nil
}

// BoolParamDefault extracts an optional boolean parameter.
func (r Request) BoolParamDefault(name string, def bool) (bool, error) {
	v, ok := r.Params[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &MissingParamError{Name: name}
	}
	return b, nil
}

// narrowInt converts a decoded JSON number to int.
func narrowInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
