package mongodb

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
)

// setIf adds key to the $set document only when the value is non-zero,
// so partial updates never clobber stored fields.
func setIf(set bson.M, key, value string) {
	if value != "" {
		set[key] = value
	}
}

func regexEscape(s string) string {
	return regexp.QuoteMeta(s)
}
