package model

import (
	"fmt"
	"strings"
)

// keyRoots is the chromatic circle used by the analyzer's Krumhansl-Schmuckler
// templates and by TransposeKey; sharps are used as the canonical spelling.
var keyRoots = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParseKey splits a key string of the form "<root>[m]" into its root index
// (0=C .. 11=B) and minor flag. It accepts both sharp and flat spellings.
func ParseKey(key string) (rootIdx int, minor bool, err error) {
	key = strings.TrimSpace(key)
	minor = strings.HasSuffix(key, "m")
	root := strings.TrimSuffix(key, "m")
	root = normalizeFlat(root)
	for i, r := range keyRoots {
		if strings.EqualFold(r, root) {
			return i, minor, nil
		}
	}
	return 0, false, fmt.Errorf("invalid key %q", key)
}

func normalizeFlat(root string) string {
	flats := map[string]string{
		"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	}
	if sharp, ok := flats[root]; ok {
		return sharp
	}
	return root
}

// FormatKey renders a root index and minor flag back into "<root>[m]" form.
func FormatKey(rootIdx int, minor bool) string {
	rootIdx = ((rootIdx % 12) + 12) % 12
	if minor {
		return keyRoots[rootIdx] + "m"
	}
	return keyRoots[rootIdx]
}

// TransposeKey shifts key by n semitones, wrapping around the chromatic
// circle, and renders the result in sharp spelling.
// TransposeKey(TransposeKey(k, n), -n) == k for any k in the form FormatKey
// produces (an upper-case natural or sharp root) and any n in [-24,24]; a
// flat-spelled k such as "Db" comes back as its sharp equivalent "C#".
func TransposeKey(key string, semitones int) (string, error) {
	root, minor, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	return FormatKey(root+semitones, minor), nil
}
