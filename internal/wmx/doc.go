// Package wmx defines the core value types of the component installation
// pipeline: marketplace component metadata, resolved component references,
// fetched snapshots, install records, and the wmconfig.json descriptor.
package wmx
