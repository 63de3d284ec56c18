// Package registry is the routing fabric: backend descriptors grouped into
// per-kind pools, selected least-connections-first, mutated safely while
// requests are in flight.
package registry

import (
	"strings"

	"github.com/modelgate/modelgate/internal/httperr"
)

// Kind is a bitset of backend capabilities. A backend advertising several
// kinds carries several bits in one value.
type Kind uint8

const (
	KindChat Kind = 1 << iota
	KindEmbeddings
	KindImage
	KindTranscribe
	KindTranslate
	KindTTS
)

// kindOrder fixes the canonical token order used in ids and listings.
var kindOrder = []Kind{KindChat, KindEmbeddings, KindImage, KindTranscribe, KindTranslate, KindTTS}

var kindTokens = map[Kind]string{
	KindChat:       "chat",
	KindEmbeddings: "embeddings",
	KindImage:      "image",
	KindTranscribe: "transcribe",
	KindTranslate:  "translate",
	KindTTS:        "tts",
}

var tokenKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTokens))
	for k, t := range kindTokens {
		m[t] = k
	}
	return m
}()

// ParseKind resolves a single lowercase kind token.
func ParseKind(token string) (Kind, error) {
	if k, ok := tokenKinds[token]; ok {
		return k, nil
	}
	return 0, httperr.InvalidKind(token)
}

// ParseTokens unions a list of tokens into one kind set. An empty list
// yields the empty set without error; callers decide whether that is legal.
func ParseTokens(tokens []string) (Kind, error) {
	var set Kind
	for _, t := range tokens {
		k, err := ParseKind(t)
		if err != nil {
			return 0, err
		}
		set |= k
	}
	return set, nil
}

// IsEmpty reports whether no kind bit is set.
func (k Kind) IsEmpty() bool { return k == 0 }

// Contains reports whether every bit of other is set in k.
func (k Kind) Contains(other Kind) bool { return k&other == other }

// Kinds explodes the set into single-bit kinds in canonical order.
func (k Kind) Kinds() []Kind {
	out := make([]Kind, 0, len(kindOrder))
	for _, bit := range kindOrder {
		if k&bit != 0 {
			out = append(out, bit)
		}
	}
	return out
}

// Tokens renders the set as lowercase tokens in canonical order.
func (k Kind) Tokens() []string {
	kinds := k.Kinds()
	out := make([]string, len(kinds))
	for i, bit := range kinds {
		out[i] = kindTokens[bit]
	}
	return out
}

// String joins the tokens with "-", the form used as the backend id prefix.
func (k Kind) String() string { return strings.Join(k.Tokens(), "-") }

// KindsFromID recovers the kind set from a backend id of the form
// "<kind-tokens>-server-<nonce>".
func KindsFromID(id string) (Kind, error) {
	prefix, _, ok := strings.Cut(id, "-server-")
	if !ok {
		return 0, httperr.InvalidKind(id)
	}
	return ParseTokens(strings.Split(prefix, "-"))
}
