// Package marketplace is the HTTP client for the WaveMaker marketplace
// catalog. It maps the catalog's loosely-typed JSON responses into the
// strict value types of package wmx at the boundary; responses missing
// required fields fail fast as malformed rather than propagating.
package marketplace
