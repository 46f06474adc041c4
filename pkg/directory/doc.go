// Package directory is the authoritative store mapping resolution keys to
// tenants: records, lifecycle state, credential hashes, and key rotation.
//
// All mutation goes through Service. That is where the layer's cache
// contract lives: suspend, resume, delete, and rotate-key invalidate every
// resolution-cache entry of the affected tenant before they report success,
// so lifecycle changes take effect within one resolution cycle instead of
// one cache TTL. Service also implements tenant.Directory, making it the
// single component the resolver reads through.
//
// API credentials are never stored raw. The hasher derives a dedicated MAC
// key from the application secret (HKDF-SHA256) and stores keyed
// BLAKE2b-256 hashes; rotation stamps the old key invalid with a short
// grace window rather than deleting it.
//
// Two stores ship: MemoryStore for tests and development, PGStore for
// production with the schema embedded as goose migrations.
package directory
