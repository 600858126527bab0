package tns

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TNS blocks requests without a browser-looking user agent.
const spoofUserAgent = "Mozilla/5.0 (X11; Linux i686; rv:110.0) Gecko/20100101 Firefox/110.0."

// VocabularyCache holds the registry's controlled vocabularies
// (groups, filters, instruments, AT types and so on) in both
// directions: code to name as served, and name to code for building
// reports. Entries are refreshed on a schedule; a failed refresh keeps
// serving the last good copy.
type VocabularyCache struct {
	BaseURL string
	Log     *zap.Logger

	client *http.Client
	ttl    time.Duration

	mu        sync.RWMutex
	values    map[string]json.RawMessage
	reverse   map[string]map[string]string
	fetchedAt time.Time
}

// NewVocabularyCache creates an empty cache for the given registry
// base URL. The first lookup triggers a fetch.
func NewVocabularyCache(baseURL string, log *zap.Logger) *VocabularyCache {
	return &VocabularyCache{
		BaseURL: baseURL,
		Log:     log,
		client:  &http.Client{Timeout: 30 * time.Second},
		ttl:     time.Hour,
	}
}

// Refresh fetches the vocabulary tables from the registry and rebuilds
// the reverse lookup. On failure the previous tables stay in place.
func (c *VocabularyCache) Refresh() error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/api/values/", nil)
	if err != nil {
		return fmt.Errorf("build vocabulary request: %w", err)
	}
	req.Header.Set("User-Agent", spoofUserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch vocabulary values: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch vocabulary values: unexpected status %s", resp.Status)
	}
	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode vocabulary values: %w", err)
	}

	c.Prime(body.Data)
	c.Log.Info("refreshed vocabulary cache",
		zap.String("base_url", c.BaseURL),
		zap.Int("categories", len(body.Data)))
	return nil
}

// Prime installs a vocabulary table directly, bypassing the network.
func (c *VocabularyCache) Prime(values map[string]json.RawMessage) {
	reverse := make(map[string]map[string]string, len(values))
	for category, raw := range values {
		reverse[category] = reverseCategory(raw)
	}
	c.mu.Lock()
	c.values = values
	c.reverse = reverse
	c.fetchedAt = time.Now()
	c.mu.Unlock()
}

// reverseCategory inverts one vocabulary category. List categories map
// each name to its index; object categories map each name back to its
// key.
func reverseCategory(raw json.RawMessage) map[string]string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string]string, len(list))
		for i, name := range list {
			out[name] = strconv.Itoa(i)
		}
		return out
	}
	var object map[string]string
	if err := json.Unmarshal(raw, &object); err == nil {
		out := make(map[string]string, len(object))
		for code, name := range object {
			out[name] = code
		}
		return out
	}
	return map[string]string{}
}

// ensureFresh refreshes the tables when they are missing or older than
// the TTL. A refresh failure with a previous copy in place falls back
// to that copy.
func (c *VocabularyCache) ensureFresh() {
	c.mu.RLock()
	stale := c.values == nil || time.Since(c.fetchedAt) > c.ttl
	empty := c.values == nil
	c.mu.RUnlock()
	if !stale {
		return
	}
	if err := c.Refresh(); err != nil {
		if empty {
			c.Log.Warn("vocabulary refresh failed with no cached copy", zap.Error(err))
		} else {
			c.Log.Warn("vocabulary refresh failed, serving stale copy", zap.Error(err))
		}
	}
}

// ToCode translates a human-readable vocabulary name into the
// registry's code for that category.
func (c *VocabularyCache) ToCode(category, name string) (string, bool) {
	c.ensureFresh()
	c.mu.RLock()
	defer c.mu.RUnlock()
	code, ok := c.reverse[category][name]
	return code, ok
}

// FromCode translates a registry code back into its name.
func (c *VocabularyCache) FromCode(category, code string) (string, bool) {
	c.ensureFresh()
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, ok := c.values[category]
	if !ok {
		return "", false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		i, err := strconv.Atoi(code)
		if err != nil || i < 0 || i >= len(list) {
			return "", false
		}
		return list[i], true
	}
	var object map[string]string
	if err := json.Unmarshal(raw, &object); err == nil {
		name, ok := object[code]
		return name, ok
	}
	return "", false
}

// Names returns every known name in a category, for validation error
// hints.
func (c *VocabularyCache) Names(category string) []string {
	c.ensureFresh()
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.reverse[category]))
	for name := range c.reverse[category] {
		names = append(names, name)
	}
	return names
}
