package rag

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/httperr"
)

// healthSentinel marks a probe message. It is stripped from the query and
// honored only when it closes the most recent message.
const healthSentinel = "<server-health>"

// Target is one vector-DB collection to search.
type Target struct {
	URL            string
	Collection     string
	Limit          uint64
	ScoreThreshold float32
}

// resolveTargets reads the per-request vector-DB quadruple off the chat
// body, falling back to the configured defaults when the request carries
// none. A partial quadruple or mismatched array lengths is a bad request.
func resolveTargets(body []byte, defaults config.VectorDBConfig) ([]Target, error) {
	url := gjson.GetBytes(body, "vdb_server_url")
	collections := gjson.GetBytes(body, "vdb_collection_name")
	limits := gjson.GetBytes(body, "limit")
	thresholds := gjson.GetBytes(body, "score_threshold")

	switch {
	case url.Exists() && collections.Exists() && limits.Exists() && thresholds.Exists():
		names := collections.Array()
		limitVals := limits.Array()
		thresholdVals := thresholds.Array()
		if len(names) != len(limitVals) || len(names) != len(thresholdVals) {
			return nil, httperr.BadRequest("The number of elements of `collection name`, `limit`, `score_threshold` in the request should be same.")
		}
		targets := make([]Target, len(names))
		for i, name := range names {
			targets[i] = Target{
				URL:            url.String(),
				Collection:     name.String(),
				Limit:          limitVals[i].Uint(),
				ScoreThreshold: float32(thresholdVals[i].Float()),
			}
		}
		return targets, nil

	case !url.Exists() && !collections.Exists() && !limits.Exists() && !thresholds.Exists():
		targets := make([]Target, len(defaults.CollectionName))
		for i, name := range defaults.CollectionName {
			targets[i] = Target{
				URL:            defaults.URL,
				Collection:     name,
				Limit:          defaults.Limit,
				ScoreThreshold: defaults.ScoreThreshold,
			}
		}
		return targets, nil

	default:
		return nil, httperr.BadRequest("The VectorDB settings in the request are not correct. The `vdb_server_url`, `vdb_collection_name`, `limit`, `score_threshold` fields in the request should be provided together.")
	}
}

// deriveQuery walks the messages from newest to oldest, collecting the
// text of up to window user messages, and joins them oldest-first. A
// message ending in the health sentinel is included, stripped, only when
// it is the most recent message, and always ends the walk.
func deriveQuery(body []byte, window uint64) (string, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	if len(messages) == 0 {
		return "", httperr.BadRequest("Found empty chat messages")
	}

	var collected []string
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Get("role").String() != "user" {
			continue
		}
		content := msg.Get("content")
		if content.Type != gjson.String {
			continue
		}
		text := content.String()
		if strings.HasSuffix(text, healthSentinel) {
			if i == len(messages)-1 {
				collected = append(collected, strings.TrimSuffix(text, healthSentinel))
				break
			}
		} else {
			collected = append(collected, text)
		}
		if uint64(len(collected)) == window {
			break
		}
	}

	if len(collected) == 0 {
		return "", httperr.BadRequest("No user messages found")
	}

	// collected is newest-first; the query reads oldest-first.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return strings.Join(collected, "\n"), nil
}
