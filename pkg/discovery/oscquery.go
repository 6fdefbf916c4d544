package discovery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/facetrackd/facetrackd/pkg/registry"
)

// queryNode mirrors one node of an OSC Query JSON tree.
type queryNode struct {
	FullPath string               `json:"FULL_PATH"`
	Type     *string              `json:"TYPE"`
	Contents map[string]queryNode `json:"CONTENTS"`
}

func wireTypeFor(typeTag string) registry.WireType {
	if len(typeTag) == 0 {
		return registry.Unknown
	}
	switch typeTag[0] {
	case 'f', 'd':
		return registry.Float
	case 'T', 'F':
		return registry.Bool
	case 'i', 'h':
		return registry.Int
	default:
		return registry.Unknown
	}
}

func flattenNode(node queryNode, into map[string]registry.WireType) {
	if node.Type != nil {
		into[node.FullPath] = wireTypeFor(*node.Type)
	}
	for _, child := range node.Contents {
		flattenNode(child, into)
	}
}

// fetchAvatarParameters fetches and flattens the OSC Query tree at avatarURL
// into a wire-address -> declared-type map.
func fetchAvatarParameters(client *http.Client, avatarURL string) (map[string]registry.WireType, error) {
	req, err := http.NewRequest(http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building oscquery request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching oscquery tree: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oscquery fetch returned status %d", resp.StatusCode)
	}

	var root queryNode
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding oscquery tree: %w", err)
	}

	flat := make(map[string]registry.WireType)
	flattenNode(root, flat)
	return flat, nil
}

const (
	fetchMaxAttempts = 5
	fetchRetryDelay  = time.Second
)

// fetchWithRetry retries fetchAvatarParameters up to fetchMaxAttempts times,
// waiting fetchRetryDelay between attempts (§3, grounded on the original
// service's fetch_with_retry).
func fetchWithRetry(client *http.Client, avatarURL string, sleep func(time.Duration)) (map[string]registry.WireType, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		params, err := fetchAvatarParameters(client, avatarURL)
		if err == nil {
			return params, nil
		}
		lastErr = err
		if attempt < fetchMaxAttempts {
			sleep(fetchRetryDelay)
		}
	}
	return nil, fmt.Errorf("fetching avatar parameters after %d attempts: %w", fetchMaxAttempts, lastErr)
}
