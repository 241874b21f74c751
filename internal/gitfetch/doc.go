// Package gitfetch retrieves component sources from git repositories.
// Each fetch clones the exact requested revision into a freshly created
// scratch directory, producing an isolated snapshot that is never written
// under the project tree. Failed fetches never leave a partial clone on
// disk.
package gitfetch
