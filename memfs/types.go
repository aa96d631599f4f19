// Package memfs is the in-memory filesystem of a sandbox. Configuration
// files live here: the conventional engine reads and writes them directly,
// and the transactional backend materializes its database blob into this
// tree before handing it to the engine.
//
// The tree is kept in three layers: an ordered B-tree mapping path to node
// ID, a node map holding metadata, and a content map holding file bytes.
// The ordered index makes directory listings a range scan instead of a full
// walk.
package memfs

import (
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"
)

// Node describes a single file or directory.
type Node struct {
	ID   string
	Name string
	Dir  bool
	Size int64

	ModTime    time.Time
	CreateTime time.Time
}

// FS is a thread-safe in-memory filesystem rooted at "/".
type FS struct {
	mu sync.RWMutex

	// Ordered path index: normalized path -> node ID.
	paths *btree.Map[string, string]
	// Node metadata by ID.
	nodes map[string]*Node
	// File contents by node ID.
	contents map[string][]byte

	nextID int64
}

// New creates an empty filesystem containing only the root directory.
func New() *FS {
	fs := &FS{
		paths:    btree.NewMap[string, string](0),
		nodes:    make(map[string]*Node),
		contents: make(map[string][]byte),
		nextID:   1,
	}

	now := time.Now()
	id := fs.generateID()
	fs.nodes[id] = &Node{
		ID:         id,
		Dir:        true,
		ModTime:    now,
		CreateTime: now,
	}
	fs.paths.Set("", id)

	return fs
}

func (fs *FS) generateID() string {
	id := atomic.AddInt64(&fs.nextID, 1)
	return strconv.FormatInt(id, 10)
}

// normalize maps any input path to the internal rooted-relative form: the
// root is "", everything else is "a/b/c" with no leading or trailing slash.
func normalize(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
