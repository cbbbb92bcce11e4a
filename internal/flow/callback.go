package flow

import (
	"fmt"
	"strconv"
	"strings"

	"tubebot/internal/model"
)

// CallbackKind tags the closed set of callback commands.
type CallbackKind int

const (
	// CallbackSelect picks a search result by index.
	CallbackSelect CallbackKind = iota
	// CallbackFormat picks audio or video.
	CallbackFormat
	// CallbackQuality picks a video format id (or the "best" sentinel).
	CallbackQuality
)

// Callback is a decoded callback command. The opaque wire string is parsed
// exactly once at the boundary; downstream logic never re-parses it.
type Callback struct {
	Kind     CallbackKind
	Index    int        // CallbackSelect
	Format   model.Kind // CallbackFormat
	Selector string     // CallbackQuality: format id or model.FormatBest
	Label    string     // CallbackQuality: display label, e.g. "720p"
}

// ParseCallback decodes "select:<i>", "format:<audio|video>", and
// "quality:<formatID>:<label>" callback data.
func ParseCallback(data string) (Callback, error) {
	verb, rest, ok := strings.Cut(data, ":")
	if !ok {
		return Callback{}, fmt.Errorf("malformed callback %q", data)
	}
	switch verb {
	case "select":
		idx, err := strconv.Atoi(rest)
		if err != nil {
			return Callback{}, fmt.Errorf("malformed select index %q", rest)
		}
		return Callback{Kind: CallbackSelect, Index: idx}, nil
	case "format":
		switch model.Kind(rest) {
		case model.KindAudio, model.KindVideo:
			return Callback{Kind: CallbackFormat, Format: model.Kind(rest)}, nil
		}
		return Callback{}, fmt.Errorf("unknown format kind %q", rest)
	case "quality":
		selector, label, ok := strings.Cut(rest, ":")
		if !ok || selector == "" {
			return Callback{}, fmt.Errorf("malformed quality callback %q", data)
		}
		return Callback{Kind: CallbackQuality, Selector: selector, Label: label}, nil
	}
	return Callback{}, fmt.Errorf("unknown callback verb %q", verb)
}

// SelectData encodes an index-selection callback.
func SelectData(i int) string { return fmt.Sprintf("select:%d", i) }

// FormatData encodes a format-choice callback.
func FormatData(kind model.Kind) string { return "format:" + string(kind) }

// QualityData encodes a quality-choice callback.
func QualityData(formatID, label string) string {
	return "quality:" + formatID + ":" + label
}
