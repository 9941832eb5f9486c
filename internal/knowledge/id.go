package knowledge

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// ID prefixes per collection. Conversation summaries carry caller-supplied
// ids and get no prefix.
const (
	entityPrefix = "entity"
	factPrefix   = "fact"
	notePrefix   = "note"
)

// newID builds a collection-scoped id of the form
// {prefix}_{base36 unix nanos}_{8 random hex chars}. The random suffix keeps
// ids unique with overwhelming probability under concurrent creation within
// the same process; the timestamp component keeps them roughly sortable.
func newID(prefix string) string {
	var suffix [4]byte
	// rand.Read on the default source never fails.
	_, _ = rand.Read(suffix[:])

	return prefix + "_" +
		strconv.FormatInt(time.Now().UnixNano(), 36) + "_" +
		hex.EncodeToString(suffix[:])
}
