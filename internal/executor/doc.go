// Package executor runs validated GraphQL documents against a gqlparser
// schema, delegating field resolution to a Runtime.
//
// # Execution model
//
// Root fields of a query operation are independent and are resolved
// concurrently through Runtime.ResolveRoot; a mutation's root fields run one
// after another in document order, as GraphQL requires. Every field below the
// root is resolved with Runtime.ResolveField, which is expected to project the
// value out of its parent without side effects.
//
// # Value completion
//
//   - Non-Null: complete the inner type; a null inner value records a located
//     error (unless one was already recorded at or below the path) and nulls
//     the nearest nullable ancestor.
//   - List: complete each element with an index-aware path. A null element of
//     a Non-Null item type nulls the whole list.
//   - Scalar/Enum: pointers are dereferenced and values returned as-is;
//     encoding/json-compatible values are expected.
//   - Object: collect subfields (honouring @skip/@include, fragment spreads and
//     inline fragments, including abstract type conditions) and execute them.
//   - Interface/Union: Runtime.ResolveType picks the concrete object type.
//
// # Introspection
//
// When enabled, __schema and __type on the query root are answered with the
// wrappers from gqlgen's introspection package; their subfields are resolved
// through Runtime.ResolveField like any other value.
//
// # Errors
//
// Errors are accumulated with response paths while allowing partial success.
// Resolver errors are reported with their message unchanged.
package executor
