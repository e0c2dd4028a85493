package fetchchain

import (
	"fmt"
	"strings"
)

// Signatures of the interstitial served by the target's edge WAF
// instead of real content.
var challengeMarkers = []string{
	"just a moment...",
	"checking your browser",
	"attention required!",
	"cf-challenge",
	"_cf_chl_opt",
	"cf_chl_",
	"turnstile",
}

// minimum body size for a relay response to be considered real catalog
// content; relay error blurbs fall under it. Direct responses are not
// held to this floor since some endpoints legitimately answer with tiny
// JSON payloads.
const minPlausibleBody = 500

func IsChallenge(body string) bool {
	lowered := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func checkUsable(status int, body string) error {
	if status < 200 || status >= 400 {
		return fmt.Errorf("bad status %d", status)
	}
	if IsChallenge(body) {
		return fmt.Errorf("challenge page served")
	}
	return nil
}
