package bot

import (
	"strings"
	"testing"
)

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<b>bold</b>", "&lt;b&gt;bold&lt;/b&gt;"},
		{"a & b", "a &amp; b"},
	}
	for _, tt := range tests {
		if got := escapeHTML(tt.in); got != tt.want {
			t.Errorf("escapeHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHelpMessageAdminSections(t *testing.T) {
	plain := helpMessage(false)
	if strings.Contains(plain, "/broadcast") {
		t.Error("non-admin help leaks admin commands")
	}
	admin := helpMessage(true)
	for _, cmd := range []string{"/stats", "/feedback_list", "/broadcast", "/reply"} {
		if !strings.Contains(admin, cmd) {
			t.Errorf("admin help missing %s", cmd)
		}
	}
}

func TestFeedbackNotificationEscapesUserText(t *testing.T) {
	got := feedbackNotification("@eve", 5, "<script>alert(1)</script>", 2)
	if strings.Contains(got, "<script>") {
		t.Error("user text not escaped")
	}
	if !strings.Contains(got, "5") {
		t.Error("user id missing")
	}
}
