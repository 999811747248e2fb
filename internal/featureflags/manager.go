// Package featureflags gates optional board features such as search and the
// live event feed.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"newsboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Known flags.
const (
	Search   = "search"
	LiveFeed = "live_feed"
)

type rule struct {
	raw     string
	percent int // 0 off, 100 on, anything between is a per-user rollout
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "search=on,live_feed=25%"
type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated flag list. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		pct, ok := parseValue(value)
		if !ok {
			continue
		}
		rules[key] = rule{raw: value, percent: pct}
	}

	return &Manager{rules: rules}
}

func parseValue(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil {
			return 0, false
		}
		return min(max(pct, 0), 100), true
	}
	return 0, false
}

// Enabled returns whether a flag is enabled for a given user. Unknown flags
// are disabled. Partial rollouts never include anonymous users.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent <= 0:
		return false
	case r.percent >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Require answers 404 for routes behind a disabled flag, so a switched-off
// feature looks absent.
func (m *Manager) Require(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(uint)
		if !m.Enabled(name, userID) {
			return models.RespondWithError(c, models.NewNotFoundError("Feature", name))
		}
		return c.Next()
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
