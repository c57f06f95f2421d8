package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Compose folds extension schemas into the base schema as top-level
// properties. Each extension is inlined under its key, with its own
// $schema marker removed.
func Compose(base []byte, extensions map[string][]byte, title string) ([]byte, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(base, &root); err != nil {
		return nil, fmt.Errorf("could not parse base schema: %w", err)
	}

	props, _ := root["properties"].(map[string]interface{})
	if props == nil {
		props = make(map[string]interface{})
		root["properties"] = props
	}

	keys := make([]string, 0, len(extensions))
	for k := range extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var ext map[string]interface{}
		if err := json.Unmarshal(extensions[key], &ext); err != nil {
			return nil, fmt.Errorf("could not parse %s schema: %w", key, err)
		}
		delete(ext, "$schema")
		delete(ext, "$id")
		// Local $refs point at the document root, so definitions move there.
		if defs, ok := ext["$defs"].(map[string]interface{}); ok {
			rootDefs, _ := root["$defs"].(map[string]interface{})
			if rootDefs == nil {
				rootDefs = make(map[string]interface{})
				root["$defs"] = rootDefs
			}
			for name, def := range defs {
				if _, exists := rootDefs[name]; exists {
					return nil, fmt.Errorf("%s schema redefines %q", key, name)
				}
				rootDefs[name] = def
			}
			delete(ext, "$defs")
		}
		props[key] = ext
	}

	root["additionalProperties"] = true
	if title != "" {
		root["title"] = title
	}
	return json.MarshalIndent(root, "", "  ")
}
