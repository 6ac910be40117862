package main

import (
	"regexp"
	"strconv"
)

// Recorders name splits <prefix>_<n>.db3; finished splits may additionally
// carry a compression suffix.
var bagNumberRegex = regexp.MustCompile(`^(.*)_(\d+)\.db3(\.xz|\.lz4)?$`)

type bagMetadata struct {
	path   string
	number int
	// isNew marks bags discovered live by the watcher, as opposed to
	// backlog found on startup. New bags are exported newest first.
	isNew bool
	index int
}

// newBagMetadata parses the split number out of a bag path. It returns nil
// if the path is not a numbered bag file.
func newBagMetadata(path string, isNew bool) *bagMetadata {
	matches := bagNumberRegex.FindStringSubmatch(path)
	if matches == nil {
		return nil
	}
	number, err := strconv.Atoi(matches[2])
	if err != nil {
		// The regex only matches a parsable integer. If a parsing error
		// occurs, it is an error in the regex.
		panic(err)
	}
	return &bagMetadata{path: path, number: number, isNew: isNew}
}
