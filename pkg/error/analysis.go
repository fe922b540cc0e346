package error

import "fmt"

// Constructors for the statement analysis errors. Each one names the
// offending identifier or AST node in Detail.

func RelationUnknown(name string) *DBError {
	return New(ErrCategoryUser, CodeRelationUnknown, "relation unknown").
		WithDetail("relation %q does not exist", name)
}

func RelationAmbiguous(name string) *DBError {
	return New(ErrCategoryUser, CodeRelationAmbiguous, "relation ambiguous").
		WithDetail("relation name %q is specified more than once", name).
		WithHint("give each relation in FROM a distinct alias")
}

func ColumnUnknown(name string) *DBError {
	return New(ErrCategoryUser, CodeColumnUnknown, "column unknown").
		WithDetail("column %q does not exist in any source relation", name)
}

func ColumnAmbiguous(name string, relations []string) *DBError {
	return New(ErrCategoryUser, CodeColumnAmbiguous, "column ambiguous").
		WithDetail("column %q is exported by %v", name, relations).
		WithHint("qualify the column with a relation name")
}

func UnknownFunction(name string, args fmt.Stringer) *DBError {
	return New(ErrCategoryUser, CodeUnknownFunction, "unknown function").
		WithDetail("%s(%s)", name, args)
}

func InvalidIdentifier(name string) *DBError {
	return New(ErrCategoryUser, CodeInvalidIdentifier, "invalid identifier").
		WithDetail("%q has too many parts", name)
}

func ParameterIndexOutOfBounds(index, count int) *DBError {
	return New(ErrCategoryUser, CodeParameterIndexOutOfBounds, "parameter index out of bounds").
		WithDetail("parameter $%d requested but %d parameters were given", index, count)
}

func UnsupportedFeature(feature string) *DBError {
	return New(ErrCategoryUser, CodeUnsupportedFeature, "unsupported feature").
		WithDetail("%s", feature)
}

// TypeCoercion reports a value that cannot be converted to the named type.
func TypeCoercion(value any, typeName string) *DBError {
	return New(ErrCategoryData, CodeTypeCoercion, "cannot coerce value").
		WithDetail("cannot convert %v (%T) to %s", value, value, typeName)
}
