// Package memory provides in-process implementations of driven ports.
//
// SessionStore backs the ephemeral session scope in production. RecordStore,
// IndexStore and ConfigStore hold everything in maps; they serve tests and
// runs that must leave nothing on disk.
package memory
