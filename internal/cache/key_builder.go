package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"simple-openai-go/pkg/domain/chat"
)

// BuildExactCacheKeyFromChatRequest builds an ExactCacheKey from:
//   - the ChatRequest (its user field scopes the entry),
//   - versionID (bumped by the caller to invalidate older entries).
//
// The request is hashed in its wire encoding, so two requests share an entry
// only if they would produce the same bytes on the wire.
func BuildExactCacheKeyFromChatRequest(req chat.ChatRequest, versionID string) (ExactCacheKey, error) {
	modelID := strings.TrimSpace(req.Model)

	body, err := json.Marshal(req)
	if err != nil {
		return ExactCacheKey{}, err
	}

	normalized := "model:" + modelID + "|body:" + string(body)

	sum := sha256.Sum256([]byte(normalized))
	hash := hex.EncodeToString(sum[:])

	return ExactCacheKey{
		UserID:    sanitize(req.User),
		ModelID:   sanitize(modelID),
		VersionID: sanitize(versionID),
		Hash:      hash,
	}, nil
}

// sanitize keeps key segments free of the ':' separator.
func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ":", "_")
}
