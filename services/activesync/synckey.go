package activesync

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// Issued sync keys are "{UUID}N". Plain decimal keys from older clients are
// accepted on input; the first key the server issues moves the partnership
// onto the UUID form.
var syncKeyPattern = regexp.MustCompile(`^\{([0-9a-fA-F-]{36})\}([0-9]+)$`)

// NextSyncKey returns the key following current. A fresh UUID is minted when
// current is "0" or not in UUID form.
func NextSyncKey(current string) string {
	if m := syncKeyPattern.FindStringSubmatch(current); m != nil {
		n, err := strconv.ParseUint(m[2], 10, 32)
		if err == nil {
			return fmt.Sprintf("{%s}%d", m[1], n+1)
		}
	}
	return fmt.Sprintf("{%s}1", uuid.NewString())
}

// ValidSyncKeyForm reports whether the client-supplied key is syntactically
// acceptable: "0", a decimal counter, or the issued "{UUID}N" form.
func ValidSyncKeyForm(key string) bool {
	if key == "" {
		return false
	}
	if syncKeyPattern.MatchString(key) {
		return true
	}
	_, err := strconv.ParseUint(key, 10, 64)
	return err == nil
}
