// Package robots gates crawling on robots.txt. Parsed rules are memoized per
// host with a bounded lifetime so a crawl re-reads policy at most once per
// host per expiry window.
package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

type Manager struct {
	HTTPClient *http.Client
	UserAgent  string
	// EntryExpiry bounds how long parsed rules are reused. Zero means 30 minutes.
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Allowed reports whether pageURL may be fetched for the manager's user
// agent. Unreachable robots.txt defaults to allow; a 5xx answer disallows per
// the standard convention.
func (m *Manager) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return true
	}
	data := m.rulesFor(ctx, u)
	if data == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	agent := m.UserAgent
	if agent == "" {
		agent = "*"
	}
	return data.FindGroup(agent).Test(path)
}

func (m *Manager) rulesFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if ent, ok := m.mem[key]; ok && m.now().Before(ent.expiry) {
		m.mu.Unlock()
		return ent.data
	}
	m.mu.Unlock()

	data := m.fetchRules(ctx, key+"/robots.txt")
	m.storeMem(key, data)
	return data
}

// fetchRules retrieves and parses robots.txt. A nil result means the policy
// could not be determined and the caller should allow.
func (m *Manager) fetchRules(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots fetch failed, allowing")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots parse failed, allowing")
		return nil
	}
	return data
}

func (m *Manager) storeMem(key string, data *robotstxt.RobotsData) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	m.mem[key] = memEntry{data: data, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}
