// pkg/publish/topic.go
package publish

import "strings"

// ResolveTopic substitutes every literal ${topic} token with the source
// topic name. No escaping.
func ResolveTopic(template, sourceTopic string) string {
	return strings.ReplaceAll(template, "${topic}", sourceTopic)
}
