package listing

import (
	"context"
	"fmt"
)

// Expand walks the prefix tree breadth-first starting from seeds and
// returns every object key underneath, each exactly once. Any listing
// failure aborts the whole expansion so callers never act on a partial
// key set.
func Expand(ctx context.Context, lister Lister, bucket string, seeds []string) ([]string, error) {
	var keys []string
	visited := make(map[string]bool)
	queue := append([]string(nil), seeds...)

	for len(queue) > 0 {
		prefix := queue[0]
		queue = queue[1:]
		if visited[prefix] {
			continue
		}
		visited[prefix] = true

		dir, err := FetchAll(ctx, lister, bucket, prefix, FullPageSize, false)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", prefix, err)
		}
		for _, obj := range dir.Objects {
			keys = append(keys, obj.Key)
		}
		for _, child := range dir.Prefixes {
			if !visited[child] {
				queue = append(queue, child)
			}
		}
	}
	return keys, nil
}

// ExpandSelection resolves a mixed selection of object keys and
// directory prefixes into the flat key set a bulk action applies to.
// Explicit keys keep their position ahead of expanded ones.
func ExpandSelection(ctx context.Context, lister Lister, bucket string, objectKeys, prefixes []string) ([]string, error) {
	keys := append([]string(nil), objectKeys...)
	if len(prefixes) == 0 {
		return keys, nil
	}
	expanded, err := Expand(ctx, lister, bucket, prefixes)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range expanded {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, nil
}
