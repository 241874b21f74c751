// Package store is the durable record of installed components. It keeps
// one InstallRecord per component id in a single YAML file under the
// project's components directory, read fully at open and rewritten
// atomically (temp file + rename) on every mutation. Iteration order is
// the insertion order of component ids; upserting an existing id keeps
// its position.
package store
