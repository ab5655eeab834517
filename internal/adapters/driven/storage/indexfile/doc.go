// Package indexfile persists vector indexes as two files in a directory:
//
//	index.vec        binary header followed by little-endian float32 vectors and a CRC32
//	index.meta.json  side table holding each entry's text and metadata
//
// Both files carry the same generation id. A save writes each file to a
// temporary name, syncs it and renames it into place, vectors first. A
// reader that finds differing generations has raced a save and retries;
// if they still differ the index is reported corrupt.
package indexfile
