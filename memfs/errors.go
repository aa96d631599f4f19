package memfs

import "errors"

var (
	ErrNotExist          = errors.New("memfs: path does not exist")
	ErrIsDirectory       = errors.New("memfs: path is a directory")
	ErrNotDirectory      = errors.New("memfs: path is not a directory")
	ErrDirectoryNotEmpty = errors.New("memfs: directory is not empty")
)
