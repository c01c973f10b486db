package tensor

import (
	"fmt"
	"reflect"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// FromValue converts Go scalars, (nested) slices of them, and *Tensor values
// into a Tensor. Go int maps to Int64, float64 to Float64 and float32 to
// Float32. Nested slices must be rectangular. 64-bit integers are kept exactly.
func FromValue(v any) (*Tensor, error) {
	if t, ok := v.(*Tensor); ok {
		if t == nil {
			return nil, fmt.Errorf("tensor: nil *Tensor value")
		}

		return t, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("tensor: cannot convert nil value")
	}

	var shape []int64

	elem := rv.Type()
	for cur := rv; elem.Kind() == reflect.Slice || elem.Kind() == reflect.Array; {
		shape = append(shape, int64(cur.Len()))
		elem = elem.Elem()

		if cur.Len() > 0 {
			cur = cur.Index(0)
		} else {
			cur = reflect.Zero(elem)
		}
	}

	dt, err := goKindDType(elem.Kind())
	if err != nil {
		return nil, err
	}

	total, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	if dt.Wide() {
		bits := make([]uint64, 0, total)
		if err := flatten(rv, shape, func(v reflect.Value) error {
			b, err := scalarBits(v)
			bits = append(bits, b)

			return err
		}); err != nil {
			return nil, err
		}

		return newOwnedBits(dt, bits, shape), nil
	}

	data := make([]float64, 0, total)
	if err := flatten(rv, shape, func(v reflect.Value) error {
		f, err := scalarValue(v)
		data = append(data, f)

		return err
	}); err != nil {
		return nil, err
	}

	return newOwned(dt, data, shape), nil
}

func flatten(rv reflect.Value, shape []int64, visit func(reflect.Value) error) error {
	if len(shape) == 0 {
		return visit(rv)
	}

	if int64(rv.Len()) != shape[0] {
		return fmt.Errorf("tensor: ragged value: got length %d, want %d", rv.Len(), shape[0])
	}

	for i := range rv.Len() {
		if err := flatten(rv.Index(i), shape[1:], visit); err != nil {
			return err
		}
	}

	return nil
}

func scalarValue(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}

		return 0, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("tensor: unsupported element kind %s", rv.Kind())
	}
}

func scalarBits(rv reflect.Value) (uint64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int64:
		return uint64(rv.Int()), nil
	case reflect.Uint, reflect.Uint64:
		return rv.Uint(), nil
	default:
		return 0, fmt.Errorf("tensor: unsupported element kind %s", rv.Kind())
	}
}

func goKindDType(k reflect.Kind) (dtype.DType, error) {
	switch k {
	case reflect.Bool:
		return dtype.Bool, nil
	case reflect.Int8:
		return dtype.Int8, nil
	case reflect.Int16:
		return dtype.Int16, nil
	case reflect.Int32:
		return dtype.Int32, nil
	case reflect.Int, reflect.Int64:
		return dtype.Int64, nil
	case reflect.Uint8:
		return dtype.Uint8, nil
	case reflect.Uint16:
		return dtype.Uint16, nil
	case reflect.Uint32:
		return dtype.Uint32, nil
	case reflect.Uint, reflect.Uint64:
		return dtype.Uint64, nil
	case reflect.Float32:
		return dtype.Float32, nil
	case reflect.Float64:
		return dtype.Float64, nil
	default:
		return dtype.Invalid, fmt.Errorf("tensor: unsupported element kind %s", k)
	}
}
