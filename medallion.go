// Package medallion holds shared metadata for the medallion pipeline.
package medallion

// Version is the current Medallion version.
const Version = "0.1.0"
