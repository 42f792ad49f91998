// Package store provides path-addressed tree storage for the cargo register.
//
// The register only ever needs two operations from a store: read the whole
// nested object below a path, and replace (or remove) the object at a path.
// Writes always replace whole objects; there is no field level update.
//
// # Backends
//
//   - [Memory] keeps the tree in process. It is the default for local use and tests.
//   - [Dynamo] keeps one item per object node in a DynamoDB table keyed by
//     namespace and path, and reassembles subtrees from a prefix query.
//   - [SQLite] keeps one row per object node in a SQLite file.
//
// All three also implement [Creator], a conditional create that fails with
// [ErrAlreadyExists] instead of overwriting. The key composer uses it when
// present so that two concurrent intakes of the same record cannot both win.
//
// # Configuration
//
// Use [DefaultDynamoConfig] for a single register:
//
//	cfg := store.DefaultDynamoConfig()
//	cfg.Table = "warehouse_nodes"
//	rs := store.NewDynamo(client, cfg)
//
// # Errors
//
//   - [ErrUnavailable] - backend not initialised, closed or unreachable
//   - [ErrAlreadyExists] - conditional create found the path taken
//   - [ErrInvalidPath] - empty segment or reserved character in a path
//   - [ErrNotFound] - nothing at a path that must exist
//   - [ErrEmptyValue] - create with nothing to write
package store
