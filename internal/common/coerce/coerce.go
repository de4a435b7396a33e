package coerce

import (
	"errors"
	"sort"
	"strconv"
)

// Coerce walks v and replaces every descriptor found as an object field value
// with its converted form. Arrays are walked element by element but their
// elements are never treated as descriptors themselves. The input is not
// modified. The first conversion failure aborts the walk and is returned as a
// *CoercionError carrying the field path.
func Coerce(v interface{}) (interface{}, error) {
	return walk(v)
}

func walk(v interface{}) (interface{}, error) {
	switch node := v.(type) {
	case map[string]interface{}:
		return walkObject(node)
	case []interface{}:
		return walkArray(node)
	default:
		return v, nil
	}
}

func walkObject(obj map[string]interface{}) (interface{}, error) {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	// sorted so the reported failure is stable
	sort.Strings(keys)

	out := make(map[string]interface{}, len(obj))
	for _, key := range keys {
		converted, err := walkField(obj[key])
		if err != nil {
			return nil, withSegment(err, key)
		}
		out[key] = converted
	}
	return out, nil
}

func walkField(value interface{}) (interface{}, error) {
	if d := Detect(value); d.IsDescriptor() {
		return Convert(d)
	}
	return walk(value)
}

func walkArray(arr []interface{}) (interface{}, error) {
	out := make([]interface{}, len(arr))
	for i, item := range arr {
		converted, err := walk(item)
		if err != nil {
			return nil, withSegment(err, "["+strconv.Itoa(i)+"]")
		}
		out[i] = converted
	}
	return out, nil
}

func withSegment(err error, seg string) error {
	var cerr *CoercionError
	if errors.As(err, &cerr) {
		return cerr.prepend(seg)
	}
	return err
}
