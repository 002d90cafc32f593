package config

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AccountDescriptor points at an encrypted key file and its passphrase
type AccountDescriptor struct {
	Path       string
	Passphrase string
}

// ParseAccountDescriptor parses a descriptor of the form {"<json-file-path>":"<passphrase>"}
func ParseAccountDescriptor(s string) (AccountDescriptor, error) {
	var obj map[string]string
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return AccountDescriptor{}, fmt.Errorf("invalid account descriptor %q: %v", s, err)
	}
	return descriptorFromMap(obj)
}

// ParseAccountDescriptors parses an array of descriptors of the form
// [{"<path1>":"<passphrase1>"},{"<path2>":"<passphrase2>"}]
func ParseAccountDescriptors(s string) ([]AccountDescriptor, error) {
	var objs []map[string]string
	if err := json.Unmarshal([]byte(s), &objs); err != nil {
		return nil, fmt.Errorf("invalid account descriptor list: %v", err)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("account descriptor list is empty")
	}

	descriptors := make([]AccountDescriptor, 0, len(objs))
	for i, obj := range objs {
		d, err := descriptorFromMap(obj)
		if err != nil {
			return nil, fmt.Errorf("account %d: %v", i, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func descriptorFromMap(obj map[string]string) (AccountDescriptor, error) {
	if len(obj) != 1 {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return AccountDescriptor{}, fmt.Errorf("account descriptor must have exactly one entry, got %v", keys)
	}
	for path, passphrase := range obj {
		if path == "" {
			return AccountDescriptor{}, fmt.Errorf("account descriptor has an empty file path")
		}
		return AccountDescriptor{Path: path, Passphrase: passphrase}, nil
	}
	panic("unreachable")
}
