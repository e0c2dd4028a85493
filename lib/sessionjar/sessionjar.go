// Package sessionjar holds the scraped-session cookie set for one
// wholesaler integration. A Jar is request-scoped state: it is loaded
// from the integration record, threaded through the fetch chain, and
// written back after mutation. It is never kept as a process global
// since the handler may run without memory continuity between calls.
package sessionjar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Jar map[string]string

func New() Jar {
	return Jar{}
}

// Parse restores a jar from its persisted form. An empty string is a
// valid (empty) jar.
func Parse(serialized string) (Jar, error) {
	jar := New()
	if strings.TrimSpace(serialized) == "" {
		return jar, nil
	}
	err := json.Unmarshal([]byte(serialized), &jar)
	if err != nil {
		return New(), fmt.Errorf("parse cookie jar: %w", err)
	}
	return jar, nil
}

func (j Jar) Serialize() (string, error) {
	out, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (j Jar) Clone() Jar {
	out := make(Jar, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

// Merge folds Set-Cookie header values into the jar. Cookies the server
// expires (Max-Age=0 or an empty value) are dropped.
func (j Jar) Merge(setCookie []string) {
	for _, raw := range setCookie {
		parts := strings.Split(raw, ";")
		if len(parts) == 0 {
			continue
		}
		name, value, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
		if !found || name == "" {
			continue
		}

		expired := value == ""
		for _, attr := range parts[1:] {
			k, v, _ := strings.Cut(strings.TrimSpace(attr), "=")
			if strings.EqualFold(k, "max-age") && strings.TrimSpace(v) == "0" {
				expired = true
			}
		}

		if expired {
			delete(j, name)
			continue
		}
		j[name] = value
	}
}

// MergeResponse is a convenience wrapper over Merge for a raw response.
func (j Jar) MergeResponse(res *http.Response) {
	if res == nil {
		return
	}
	j.Merge(res.Header.Values("Set-Cookie"))
}

// Header renders the jar as a Cookie request header value.
func (j Jar) Header() string {
	if len(j) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(j))
	for name, value := range j {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

func (j Jar) Empty() bool {
	return len(j) == 0
}
