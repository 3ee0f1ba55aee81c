// Package storage provides the persistent key-value store handed to applets.
//
// Every applet instance gets its own [Store], rooted at the storage location
// from its configuration. Values are encoded with small type tags so that
// nulls, numbers, strings and JSON documents survive a round trip through a
// string-only backend:
//
//	nil                      ~N~
//	numbers                  ~#~<number>
//	maps, slices, structs    ~{~<json>
//	strings                  stored verbatim
//
// Two implementations are provided: [FileStore] (one file per key, bounded by
// a byte quota) and [MemoryStore] (for tests and dev mode).
//
// Example:
//
//	st, err := storage.OpenFileStore("local-storage", 0)
//	if err != nil {
//	    return err
//	}
//	_ = st.Put("lastSeen", map[string]any{"id": 42})
//
//	var last struct{ ID int `json:"id"` }
//	ok, err := storage.GetJSON(st, "lastSeen", &last)
package storage
