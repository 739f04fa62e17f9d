// Package storage provides the SQLite-backed application catalog: catalog
// migrations, the application repository, and bulk import/export helpers.
package storage
