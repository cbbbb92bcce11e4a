package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// browserCookie is one entry of a browser-extension JSON cookies export.
type browserCookie struct {
	Domain         string  `json:"domain"`
	HostOnly       bool    `json:"hostOnly"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	ExpirationDate float64 `json:"expirationDate"`
	Name           string  `json:"name"`
	Value          string  `json:"value"`
}

// ConvertCookiesToNetscape reads a JSON cookies export and writes it in the
// Netscape cookies.txt format yt-dlp expects. A missing expiration becomes 0
// (a session cookie).
func ConvertCookiesToNetscape(jsonPath, outPath string) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	var cookies []browserCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("parse cookies: %w", err)
	}

	var b strings.Builder
	for i, c := range cookies {
		if i > 0 {
			b.WriteByte('\n')
		}
		// Netscape column 2 is the "include subdomains" flag, the inverse of
		// the export's hostOnly.
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s",
			c.Domain,
			netscapeBool(!c.HostOnly),
			c.Path,
			netscapeBool(c.Secure),
			int64(c.ExpirationDate),
			c.Name,
			c.Value,
		)
	}

	if err := os.WriteFile(outPath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

func netscapeBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
