package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// GenesisHash is the fixed sentinel used as the previous hash of the first
// entry. A chain that claims any other origin fails verification.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// computeEntryHash digests the canonical serialization of every field except
// the hash itself, concatenated with the previous entry's hash. Field order
// is fixed and metadata keys are sorted, so equal entries always produce
// equal digests.
func computeEntryHash(e AuditEntry) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(e.Sequence, 10))
	b.WriteByte('\n')
	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteByte('\n')
	b.WriteString(string(e.Kind))
	b.WriteByte('\n')
	b.WriteString(string(e.Actor.Type))
	b.WriteByte('\n')
	b.WriteString(e.Actor.Ref)
	b.WriteByte('\n')
	b.WriteString(e.Target)
	b.WriteByte('\n')
	b.WriteString(e.Action)
	b.WriteByte('\n')
	b.WriteString(e.Scope)
	b.WriteByte('\n')

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(e.Metadata[k])
		b.WriteByte('\n')
	}

	b.WriteString(e.PreviousHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
