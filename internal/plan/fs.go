package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/boshu2/macc/internal/macc"
)

func readExisting(target string) ([]byte, bool, error) {
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, macc.IO("read", target, err)
	}
	return data, true, nil
}

func jsonBytesEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return jsonDeepEqual(av, bv)
}

func jsonDeepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !jsonDeepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !jsonDeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// IsTextFile is a crude binary/text heuristic used for preview rendering:
// non-empty content containing a NUL byte is treated as binary.
func IsTextFile(content []byte) bool {
	return !bytes.ContainsRune(content, 0)
}

func splitMergeTarget(mergeTarget string) ([]string, error) {
	raw := strings.Split(mergeTarget, ".")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("invalid merge_target: %q", mergeTarget)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("invalid merge_target: %q", mergeTarget)
	}
	return parts, nil
}
