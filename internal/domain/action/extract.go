package action

import (
	"regexp"
	"strings"
)

const maxTitleLen = 50

var (
	sentenceSep = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

	emailRe   = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	callRe    = regexp.MustCompile(`\b(?i:call|phone|ring)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	meetingRe = regexp.MustCompile(`\b(?i:meet(?:ing)?|schedule)\s+(?:(?i:with)\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	taskRe    = regexp.MustCompile(`(?i)(?:need to|should|must|have to)\s+(.{10,60}?)(?:\.|$)`)

	callSkip    = map[string]bool{"the": true, "a": true, "my": true, "our": true, "them": true, "back": true}
	meetingSkip = map[string]bool{"the": true, "a": true, "my": true, "our": true}
)

// Extract находит в расшифровке письма, звонки, встречи и задачи.
// Каждое предложение дает не больше одного действия, дубликаты по заголовку отбрасываются.
func Extract(transcript string) []Draft {
	var drafts []Draft
	seen := make(map[string]bool)

	for _, sentence := range sentenceSep.Split(transcript, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		d, ok := extractSentence(sentence)
		if !ok {
			continue
		}

		key := strings.ToLower(d.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		drafts = append(drafts, d)
	}

	return drafts
}

func extractSentence(sentence string) (Draft, bool) {
	lower := strings.ToLower(sentence)

	if strings.Contains(lower, "email") || strings.Contains(lower, "send") {
		if m := emailRe.FindStringSubmatch(sentence); m != nil {
			return Draft{
				Type:        TypeEmail,
				Title:       "Email " + m[1],
				Description: sentence,
				Metadata:    map[string]string{"recipient": m[1]},
			}, true
		}
	}

	if containsAny(lower, "call", "phone", "ring") {
		if m := callRe.FindStringSubmatch(sentence); m != nil && !callSkip[strings.ToLower(m[1])] {
			return Draft{
				Type:        TypeCall,
				Title:       "Call " + m[1],
				Description: sentence,
				Metadata:    map[string]string{"contact": m[1]},
			}, true
		}
	}

	if containsAny(lower, "meeting", "meet with", "schedule") {
		if m := meetingRe.FindStringSubmatch(sentence); m != nil && !meetingSkip[strings.ToLower(m[1])] {
			return Draft{
				Type:        TypeMeeting,
				Title:       "Meeting with " + m[1],
				Description: sentence,
				Metadata:    map[string]string{"contact": m[1]},
			}, true
		}
	}

	if containsAny(lower, "need to", "should", "must", "have to") {
		if m := taskRe.FindStringSubmatch(sentence); m != nil {
			return Draft{
				Type:        TypeTask,
				Title:       truncate(strings.TrimSpace(m[1]), maxTitleLen),
				Description: sentence,
				Metadata:    map[string]string{},
			}, true
		}
	}

	return Draft{}, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
