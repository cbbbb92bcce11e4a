package probe

import (
	"encoding/json"
	"fmt"
	"strings"

	"tubebot/internal/model"
)

// videoInfo mirrors the yt-dlp --dump-single-json fields we care about.
type videoInfo struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Uploader string              `json:"uploader"`
	Duration float64             `json:"duration"`
	Formats  []model.VideoFormat `json:"formats"`
}

// searchEntry is one line of --dump-json --flat-playlist output.
type searchEntry struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Channel        string  `json:"channel"`
	Uploader       string  `json:"uploader"`
	Duration       float64 `json:"duration"`
	DurationString string  `json:"duration_string"`
}

// parseSearchLines parses newline-delimited JSON search entries. Malformed
// lines are skipped; yt-dlp occasionally interleaves warnings with results.
func parseSearchLines(out []byte) []model.SearchResultItem {
	var items []model.SearchResultItem
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var e searchEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil || e.ID == "" {
			continue
		}
		channel := e.Channel
		if channel == "" {
			channel = e.Uploader
		}
		items = append(items, model.SearchResultItem{
			ID:       e.ID,
			Title:    e.Title,
			Channel:  channel,
			Duration: durationLabel(e),
		})
	}
	return items
}

// parseVideoInfo decodes a single JSON object, recovering from stray
// non-JSON lines the same way the search parser does.
func parseVideoInfo(out []byte) (videoInfo, error) {
	data := strings.TrimSpace(string(out))
	var info videoInfo
	if err := json.Unmarshal([]byte(data), &info); err == nil && info.ID != "" {
		return info, nil
	}
	lines := strings.Split(data, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var tmp videoInfo
		if json.Unmarshal([]byte(line), &tmp) == nil && tmp.ID != "" {
			return tmp, nil
		}
	}
	return videoInfo{}, fmt.Errorf("no JSON object in yt-dlp output")
}

func durationLabel(e searchEntry) string {
	if e.DurationString != "" {
		return e.DurationString
	}
	if e.Duration <= 0 {
		return ""
	}
	total := int(e.Duration)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
