package mlog

import "strconv"

// FormatID formats a message ID for logging.
//
// A zero ID belongs to a message that has not been persisted yet, and is
// rendered as an empty string.
func FormatID(id uint64) string {
	if id == 0 {
		return ""
	}

	return strconv.FormatUint(id, 10)
}
