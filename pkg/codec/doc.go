/*
Package codec defines the wire format for every record the metadata engine
persists (spec §3, §4.2, §6): inode attributes, directory entries, file
layouts, and the S3 bucket/object metadata records. Every encoder/decoder
pair here is bit-exact and position-independent: variable-length fields are
always preceded by an explicit length, and every multi-byte integer — in
both record bodies and key bytes — is big-endian, chosen so a key's
numeric fields sort the same way lexicographically as bbolt's ordered scan
already sorts bytes (see DESIGN.md for the Open Question this resolves).

Key prefixes:

	'D'   dentry:  'D' || parentInode(8, BE) || '/' || name
	'I'   inode:   'I' || inodeID(8, BE)
	'L'   layout:  'L' || inodeID(8, BE)
	'S'   slice:   'S' || inodeID(8, BE) || sliceID(8, BE)   (optional per-slice key)
	"B:"  bucket
	"BL:" bucket-list marker
	"O:"  object:  "O:" || bucket || "/" || key
	"OL:" object-list marker

Decoders reject any payload shorter than the type's minimum length and never
read past a field's declared length.
*/
package codec
