// File: confkit/helper.go
package confkit

import "strings"

// Separator joins key segments into hierarchical paths.
const Separator = ":"

// flattenMap converts a nested map[string]any to a flat map with
// colon-notation keys.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newKey := key
		if prefix != "" {
			newKey = prefix + Separator + key
		}

		if nestedMap, isMap := value.(map[string]any); isMap {
			for subKey, subValue := range flattenMap(nestedMap, newKey) {
				flat[subKey] = subValue
			}
		} else {
			flat[newKey] = value
		}
	}

	return flat
}

// setNestedValue sets a value in a nested map using a colon-notation key.
// It creates intermediate maps if they don't exist. If a segment exists
// but is not a map, it is overwritten by a new map.
func setNestedValue(nested map[string]any, key string, value any) {
	segments := strings.Split(key, Separator)
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if !exists {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
			continue
		}

		if nextMap, isMap := next.(map[string]any); isMap {
			current = nextMap
		} else {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
		}
	}

	current[segments[len(segments)-1]] = value
}

// navigateToPath traverses a nested map to reach the specified key.
func navigateToPath(nested map[string]any, key string) any {
	if key == "" {
		return nested
	}

	key = strings.TrimSuffix(key, Separator)
	if key == "" {
		return nested
	}

	segments := strings.Split(key, Separator)
	current := any(nested)

	for _, segment := range segments {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		value, exists := currentMap[segment]
		if !exists {
			return nil
		}
		current = value
	}

	return current
}

// isValidKeySegment checks if a single key segment is a valid bare key.
// Segments are sequences of ASCII letters, digits, underscores, and dashes.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	if strings.ContainsRune(s, ':') {
		return false // Segments themselves cannot contain separators
	}

	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'

		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
