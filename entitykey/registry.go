package entitykey

import (
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/uptrace/bun/schema"
)

// Registry holds the key descriptors of every entity type known to the application.
// It is built once at startup and is read-only afterwards, so it can be shared
// between goroutines without locking.
type Registry struct {
	dialect schema.Dialect
	byType  map[reflect.Type]Descriptor
}

// NewRegistry resolves the key of each model. Models are passed the same way
// they are passed to bun, e.g. (*Product)(nil).
func NewRegistry(dialect schema.Dialect, models ...any) (*Registry, error) {
	if dialect == nil {
		return nil, errx.New(
			"[entitykey]: dialect is required",
			errx.WithCode(CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
		)
	}

	r := &Registry{
		dialect: dialect,
		byType:  make(map[reflect.Type]Descriptor, len(models)),
	}

	for i, m := range models {
		if m == nil {
			return nil, errx.New(
				"[entitykey]: model is nil",
				errx.WithCode(CodeInvalidArgument),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"position": i}),
			)
		}
		d, err := Resolve(dialect, reflect.TypeOf(m))
		if err != nil {
			return nil, errx.Wrap(err)
		}
		r.byType[d.EntityType] = d
	}

	return r, nil
}

// Dialect returns the dialect the descriptors were resolved with.
func (r *Registry) Dialect() schema.Dialect {
	return r.dialect
}

// Len returns the number of registered entity types.
func (r *Registry) Len() int {
	return len(r.byType)
}

// Descriptor returns the descriptor registered for typ (struct or pointer to struct).
func (r *Registry) Descriptor(typ reflect.Type) (Descriptor, error) {
	if typ == nil {
		return Descriptor{}, errx.New(
			"entity type is nil",
			errx.WithCode(CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
		)
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	d, ok := r.byType[typ]
	if !ok {
		return Descriptor{}, errx.New(
			fmt.Sprintf("entity %s is not registered", typ),
			errx.WithCode(CodeNotRegistered),
			errx.WithDetails(errx.D{"entity": typ.String()}),
		)
	}
	return d, nil
}

// For returns the descriptor of E.
func For[E any](r *Registry) (Descriptor, error) {
	if r == nil {
		return Descriptor{}, errx.New(
			"registry is nil",
			errx.WithCode(CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
		)
	}
	return r.Descriptor(reflect.TypeFor[E]())
}

// ForKey returns the descriptor of E and checks that E is keyed by K.
func ForKey[E any, K comparable](r *Registry) (Descriptor, error) {
	d, err := For[E](r)
	if err != nil {
		return Descriptor{}, err
	}
	if err = CheckKeyType[K](d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
