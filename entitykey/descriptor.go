// Package entitykey resolves the single primary key of bun models and builds
// SQL predicates over that key without entity-specific code.
//
// Keys are discovered from the `bun:",pk"` tags the entity declares, once, when
// the Registry is built at startup. Entities may additionally implement Keyed
// to expose their key without reflection.
package entitykey

import (
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/uptrace/bun/schema"
)

// Keyed is implemented by entities that expose their primary key directly.
// Descriptor.KeyOf prefers it over reflection.
type Keyed[K comparable] interface {
	PrimaryKey() K
}

// Descriptor describes the primary key of one entity type.
type Descriptor struct {
	// EntityType is the struct type of the entity (never a pointer).
	EntityType reflect.Type
	// EntityName is the Go type name, used in errors and logs.
	EntityName string
	// Table and TableAlias are the SQL names bun derived for the model.
	Table      string
	TableAlias string
	// KeyName is the Go field name of the key.
	KeyName string
	// KeyColumn is the SQL column name of the key.
	KeyColumn string
	// KeyType is the declared Go type of the key field.
	KeyType reflect.Type

	index []int
}

// Resolve inspects the bun table metadata of typ and returns its key descriptor.
// typ may be a struct type or a pointer to one.
func Resolve(dialect schema.Dialect, typ reflect.Type) (Descriptor, error) {
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
	if typ.Kind() != reflect.Struct {
		return Descriptor{}, errx.New(
			fmt.Sprintf("entity type %s is not a struct", typ),
			errx.WithCode(CodeKeyUnsupported),
			errx.WithDetails(errx.D{"entity": typ.String()}),
		)
	}

	table := dialect.Tables().Get(typ)

	switch len(table.PKs) {
	case 0:
		return Descriptor{}, errx.New(
			fmt.Sprintf("entity %s declares no primary key", typ.Name()),
			errx.WithCode(CodeKeyMissing),
			errx.WithDetails(errx.D{"entity": typ.Name(), "table": table.Name}),
		)
	case 1:
	default:
		columns := make([]string, 0, len(table.PKs))
		for _, f := range table.PKs {
			columns = append(columns, f.Name)
		}
		return Descriptor{}, errx.New(
			fmt.Sprintf("entity %s has a composite primary key", typ.Name()),
			errx.WithCode(CodeKeyComposite),
			errx.WithDetails(errx.D{"entity": typ.Name(), "table": table.Name, "columns": columns}),
		)
	}

	pk := table.PKs[0]
	keyType := pk.StructField.Type
	if keyType.Kind() == reflect.Pointer {
		return Descriptor{}, errx.New(
			fmt.Sprintf("entity %s has a pointer-typed primary key %s", typ.Name(), pk.GoName),
			errx.WithCode(CodeKeyUnsupported),
			errx.WithDetails(errx.D{"entity": typ.Name(), "key": pk.GoName, "key_type": keyType.String()}),
		)
	}
	if !keyType.Comparable() {
		return Descriptor{}, errx.New(
			fmt.Sprintf("primary key %s.%s is not comparable", typ.Name(), pk.GoName),
			errx.WithCode(CodeKeyUnsupported),
			errx.WithDetails(errx.D{"entity": typ.Name(), "key": pk.GoName, "key_type": keyType.String()}),
		)
	}

	return Descriptor{
		EntityType: typ,
		EntityName: typ.Name(),
		Table:      table.Name,
		TableAlias: table.Alias,
		KeyName:    pk.GoName,
		KeyColumn:  pk.Name,
		KeyType:    keyType,
		index:      pk.Index,
	}, nil
}

// KeyOf returns the key value of entity, which must be a *E of the described type.
func KeyOf[K comparable, E any](d Descriptor, entity *E) K {
	if k, ok := any(entity).(Keyed[K]); ok {
		return k.PrimaryKey()
	}
	v := reflect.ValueOf(entity).Elem().FieldByIndex(d.index)
	return v.Interface().(K) //nolint:forcetypeassert // key type is checked when the repository is built
}

// CheckKeyType verifies that K is the declared key type of the descriptor.
func CheckKeyType[K comparable](d Descriptor) error {
	want := reflect.TypeFor[K]()
	if d.KeyType != want {
		return errx.New(
			fmt.Sprintf("entity %s is keyed by %s, not %s", d.EntityName, d.KeyType, want),
			errx.WithCode(CodeKeyMismatch),
			errx.WithDetails(errx.D{
				"entity":        d.EntityName,
				"declared_type": d.KeyType.String(),
				"requested":     want.String(),
			}),
		)
	}
	return nil
}
