package robots

import "strings"

const wildcardAgent = "*"

// ProductToken reduces a User-Agent string or a robots.txt agent name to the
// lowercase token used for group selection: "Crawlgate/1.0 (+https://x)"
// becomes "crawlgate".
func ProductToken(agent string) string {
	token := strings.TrimSpace(agent)
	if idx := strings.IndexAny(token, "/ \t("); idx >= 0 {
		token = token[:idx]
	}
	return strings.ToLower(token)
}

// selectGroup returns the group token that governs agent: an exact match,
// else the longest group token that prefixes the agent token, else "*".
func selectGroup(groups map[string][]Rule, agent string) (string, bool) {
	token := ProductToken(agent)
	if token == "" {
		token = wildcardAgent
	}

	if _, ok := groups[token]; ok {
		return token, true
	}

	best := ""
	for candidate := range groups {
		if candidate == wildcardAgent {
			continue
		}
		if strings.HasPrefix(token, candidate) && len(candidate) > len(best) {
			best = candidate
		}
	}
	if best != "" {
		return best, true
	}

	if _, ok := groups[wildcardAgent]; ok {
		return wildcardAgent, true
	}
	return "", false
}
