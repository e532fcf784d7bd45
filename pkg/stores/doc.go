// Package stores provides persistence layer implementations for MachShop.
// It includes SQLite-based storage with WAL mode, connection pooling,
// optimistic status-guarded updates for change orders, document master
// versions, and the append-only ECO history.
package stores
