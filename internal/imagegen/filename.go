package imagegen

import (
	"fmt"
	"net/url"
)

const DefaultTopicLimit = 50

// FileName builds "<prefix>-image-<topic>-<index>.jpg". The topic is
// query-escaped so the name never contains a path separator, then cut to
// limit bytes without splitting a %XX escape.
func FileName(prefix, topic string, index, limit int) string {
	if limit <= 0 {
		limit = DefaultTopicLimit
	}
	return fmt.Sprintf("%s-image-%s-%d.jpg", prefix, truncateEscaped(url.QueryEscape(topic), limit), index)
}

func truncateEscaped(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	cut := limit
	switch {
	case s[cut-1] == '%':
		cut--
	case cut >= 2 && s[cut-2] == '%':
		cut -= 2
	}
	return s[:cut]
}
