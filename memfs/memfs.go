package memfs

import (
	"path"
	"strings"
	"time"
)

// Exists reports whether a file or directory exists at the given path.
func (fs *FS) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, ok := fs.paths.Get(normalize(p))
	return ok
}

// Stat returns a copy of the node at the given path.
// Returns ErrNotExist if the path doesn't exist.
func (fs *FS) Stat(p string) (*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.getLocked(normalize(p))
	if !ok {
		return nil, ErrNotExist
	}

	copied := *node
	return &copied, nil
}

// MkdirAll creates the directory at the given path along with any missing
// parents. Existing directories are left untouched.
// Returns ErrNotDirectory if a segment already exists as a file.
func (fs *FS) MkdirAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mkdirAllLocked(normalize(p))
}

// WriteFile replaces the content of the file at the given path, creating the
// file and any missing parent directories first.
// Returns ErrIsDirectory if the path exists as a directory.
func (fs *FS) WriteFile(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	normalized := normalize(p)
	node, ok := fs.getLocked(normalized)
	if ok {
		if node.Dir {
			return ErrIsDirectory
		}
	} else {
		if err := fs.mkdirAllLocked(parentOf(normalized)); err != nil {
			return err
		}

		node = &Node{
			ID:         fs.generateID(),
			Name:       path.Base("/" + normalized),
			CreateTime: time.Now(),
		}
		fs.nodes[node.ID] = node
		fs.paths.Set(normalized, node.ID)
	}

	buffer := make([]byte, len(content))
	copy(buffer, content)

	fs.contents[node.ID] = buffer
	node.Size = int64(len(buffer))
	node.ModTime = time.Now()

	return nil
}

// ReadFile returns a copy of the content of the file at the given path.
// Returns ErrNotExist if the path doesn't exist.
// Returns ErrIsDirectory if the path is a directory.
func (fs *FS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.getLocked(normalize(p))
	if !ok {
		return nil, ErrNotExist
	}
	if node.Dir {
		return nil, ErrIsDirectory
	}

	buffer := fs.contents[node.ID]
	copied := make([]byte, len(buffer))
	copy(copied, buffer)

	return copied, nil
}

// Remove deletes the file or empty directory at the given path.
// Returns ErrNotExist if the path doesn't exist.
// Returns ErrDirectoryNotEmpty for a directory that still has children, and
// for the root.
func (fs *FS) Remove(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	normalized := normalize(p)
	if normalized == "" {
		return ErrDirectoryNotEmpty
	}

	node, ok := fs.getLocked(normalized)
	if !ok {
		return ErrNotExist
	}
	if node.Dir && fs.hasChildrenLocked(normalized) {
		return ErrDirectoryNotEmpty
	}

	fs.paths.Delete(normalized)
	delete(fs.nodes, node.ID)
	delete(fs.contents, node.ID)

	return nil
}

// RemoveAll deletes the subtree rooted at the given path. Removing a missing
// path is a no-op. Removing the root empties the filesystem but keeps the
// root directory itself.
func (fs *FS) RemoveAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	normalized := normalize(p)

	prefix := normalized + "/"
	if normalized == "" {
		prefix = ""
	}

	var doomed []string
	fs.paths.Ascend(prefix, func(k, id string) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
		if k != "" {
			doomed = append(doomed, k)
		}
		return true
	})
	if normalized != "" {
		if _, ok := fs.paths.Get(normalized); ok {
			doomed = append(doomed, normalized)
		}
	}

	for _, k := range doomed {
		if id, ok := fs.paths.Get(k); ok {
			fs.paths.Delete(k)
			delete(fs.nodes, id)
			delete(fs.contents, id)
		}
	}

	return nil
}

// List returns the immediate children of the directory at the given path in
// lexical order.
// Returns ErrNotExist if the path doesn't exist.
// Returns ErrNotDirectory if the path is a file.
func (fs *FS) List(p string) ([]*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	normalized := normalize(p)
	node, ok := fs.getLocked(normalized)
	if !ok {
		return nil, ErrNotExist
	}
	if !node.Dir {
		return nil, ErrNotDirectory
	}

	prefix := normalized + "/"
	if normalized == "" {
		prefix = ""
	}

	var children []*Node
	fs.paths.Ascend(prefix, func(k, id string) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
		if k == "" {
			return true
		}
		// Grandchildren sort between children; keep scanning past them.
		if strings.Contains(k[len(prefix):], "/") {
			return true
		}

		if child, ok := fs.nodes[id]; ok {
			copied := *child
			children = append(children, &copied)
		}
		return true
	})

	return children, nil
}

func (fs *FS) getLocked(normalized string) (*Node, bool) {
	id, ok := fs.paths.Get(normalized)
	if !ok {
		return nil, false
	}
	node, ok := fs.nodes[id]
	return node, ok
}

func (fs *FS) mkdirAllLocked(normalized string) error {
	if normalized == "" {
		return nil
	}

	if node, ok := fs.getLocked(normalized); ok {
		if !node.Dir {
			return ErrNotDirectory
		}
		return nil
	}

	if err := fs.mkdirAllLocked(parentOf(normalized)); err != nil {
		return err
	}

	now := time.Now()
	node := &Node{
		ID:         fs.generateID(),
		Name:       path.Base("/" + normalized),
		Dir:        true,
		ModTime:    now,
		CreateTime: now,
	}
	fs.nodes[node.ID] = node
	fs.paths.Set(normalized, node.ID)

	return nil
}

func (fs *FS) hasChildrenLocked(normalized string) bool {
	prefix := normalized + "/"

	found := false
	fs.paths.Ascend(prefix, func(k, id string) bool {
		found = strings.HasPrefix(k, prefix)
		return false
	})
	return found
}

func parentOf(normalized string) string {
	idx := strings.LastIndexByte(normalized, '/')
	if idx < 0 {
		return ""
	}
	return normalized[:idx]
}
