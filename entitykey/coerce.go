package entitykey

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/code19m/errx"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

var (
	uuidType            = reflect.TypeFor[uuid.UUID]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Coerce converts value to the key type of d. Values that already have the key
// type are returned unchanged. Integers are accepted from any numeric type or a
// decimal string, uuids from their string, 16-byte or text form, and enum keys
// through encoding.TextUnmarshaler or their underlying kind.
func Coerce(d Descriptor, value any) (any, error) {
	out, err := coerceTo(d.KeyType, value)
	if err != nil {
		return nil, errx.New(
			fmt.Sprintf("invalid key for %s: %s", d.EntityName, err.Error()),
			errx.WithCode(CodeInvalidKey),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"entity":   d.EntityName,
				"key":      d.KeyName,
				"key_type": d.KeyType.String(),
				"value":    fmt.Sprintf("%v", value),
			}),
		)
	}
	return out, nil
}

// CoerceTo is the typed form of Coerce.
func CoerceTo[K comparable](d Descriptor, value any) (K, error) {
	var zero K
	if err := CheckKeyType[K](d); err != nil {
		return zero, err
	}
	out, err := Coerce(d, value)
	if err != nil {
		return zero, err
	}
	return out.(K), nil //nolint:forcetypeassert // coerceTo always returns d.KeyType
}

func coerceTo(t reflect.Type, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("value is a nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Type() == t {
		return rv.Interface(), nil
	}

	if t == uuidType {
		return coerceUUID(rv)
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if text, ok := textOf(rv); ok {
			ptr := reflect.New(t)
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText(text); err != nil { //nolint:forcetypeassert // checked by Implements
				return nil, err
			}
			return ptr.Elem().Interface(), nil
		}
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(rv)
		if err != nil {
			return nil, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return nil, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetInt(n)
		return out.Interface(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(rv)
		if err != nil {
			return nil, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(n) {
			return nil, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetUint(n)
		return out.Interface(), nil

	case reflect.String:
		if rv.Kind() == reflect.Bool {
			return nil, fmt.Errorf("bool is not a valid %s", t)
		}
		s, err := cast.ToStringE(plain(rv))
		if err != nil {
			return nil, err
		}
		out := reflect.New(t).Elem()
		out.SetString(s)
		return out.Interface(), nil
	}

	return nil, fmt.Errorf("cannot convert %s to %s", rv.Type(), t)
}

func coerceUUID(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.String:
		return uuid.Parse(strings.TrimSpace(rv.String()))
	case reflect.Slice:
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			break
		}
		b := rv.Bytes()
		if len(b) == 16 {
			return uuid.FromBytes(b)
		}
		return uuid.ParseBytes(b)
	case reflect.Array:
		if rv.Type().ConvertibleTo(uuidType) {
			return rv.Convert(uuidType).Interface(), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %s to uuid", rv.Type())
}

func textOf(rv reflect.Value) ([]byte, bool) {
	switch {
	case rv.Kind() == reflect.String:
		return []byte(rv.String()), true
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return rv.Bytes(), true
	}
	return nil, false
}

func toInt64(rv reflect.Value) (int64, error) {
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) || f >= 1<<63 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	case rv.Kind() == reflect.String:
		return cast.ToInt64E(strings.TrimSpace(rv.String()))
	}
	return 0, fmt.Errorf("cannot convert %s to an integer", rv.Type())
}

func toUint64(rv reflect.Value) (uint64, error) {
	switch {
	case rv.CanUint():
		return rv.Uint(), nil
	case rv.CanInt():
		n := rv.Int()
		if n < 0 {
			return 0, fmt.Errorf("%d is negative", n)
		}
		return uint64(n), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) || f < 0 || f >= 1<<64 {
			return 0, fmt.Errorf("%v is not an unsigned integer", f)
		}
		return uint64(f), nil
	case rv.Kind() == reflect.String:
		return cast.ToUint64E(strings.TrimSpace(rv.String()))
	}
	return 0, fmt.Errorf("cannot convert %s to an unsigned integer", rv.Type())
}

// plain strips named types down to their underlying basic kind so cast can handle them.
func plain(rv reflect.Value) any {
	switch {
	case rv.CanInt():
		return rv.Int()
	case rv.CanUint():
		return rv.Uint()
	case rv.CanFloat():
		return rv.Float()
	case rv.Kind() == reflect.String:
		return rv.String()
	}
	return rv.Interface()
}

// ValidateKey rejects keys that can never identify a stored row: non-positive
// signed integers, zero unsigned integers, blank strings and the nil uuid.
// Keys that implement Valid() bool decide for themselves.
func ValidateKey[K comparable](key K) error {
	if v, ok := any(key).(interface{ Valid() bool }); ok {
		if !v.Valid() {
			return invalidKeyArgument(key)
		}
		return nil
	}

	if id, ok := any(key).(uuid.UUID); ok {
		if id == uuid.Nil {
			return invalidKeyArgument(key)
		}
		return nil
	}

	rv := reflect.ValueOf(key)
	switch {
	case rv.CanInt():
		if rv.Int() <= 0 {
			return invalidKeyArgument(key)
		}
	case rv.CanUint():
		if rv.Uint() == 0 {
			return invalidKeyArgument(key)
		}
	case rv.Kind() == reflect.String:
		if strings.TrimSpace(rv.String()) == "" {
			return invalidKeyArgument(key)
		}
	}
	return nil
}

func invalidKeyArgument(key any) error {
	return errx.New(
		fmt.Sprintf("key %v is not a valid identifier", key),
		errx.WithCode(CodeInvalidArgument),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"key": fmt.Sprintf("%v", key)}),
	)
}
