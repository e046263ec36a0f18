// Package cqrs groups the read side of the Command Query Responsibility
// Segregation pattern used by repokit.
//
// Queries are read-only handlers with typed input and result. Paged listings
// built with pagedquery implement query.Query, so the wrappers in
// query/wrapper (tracing, logging, recovery, timeouts, metadata) apply to them
// without adapters.
package cqrs
