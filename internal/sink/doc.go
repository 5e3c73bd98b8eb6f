// Package sink persists extracted command records as one JSON file per
// radosgw-admin subcommand.
//
// Records are accumulated in memory while the run progresses and written
// once per category by Flush. Each file has the shape
//
//	{
//	    "ceph_version": "19.2.0-12",
//	    "outputs": [
//	        {"command": "radosgw-admin realm list", "output": {...}}
//	    ]
//	}
//
// and is named "<category>_outputs.json", where the category is the word
// following "radosgw-admin" in the command. Unless the store is created with
// WithOverwrite, an existing file is read and the new outputs are appended to
// it. Files are replaced atomically through a temporary file and rename, so a
// crash never leaves a half-written category file behind.
package sink
