package conversation

import (
	"regexp"
	"strings"
	"time"
)

// A speaker prefix is shorter than 20 characters and followed by whitespace
// or end of line, which keeps "https://..." and "10:30" out.
var genericPrefixPattern = regexp.MustCompile(`^([^:]{1,19}):(?:\s+(.*))?$`)

var selfTokens = map[string]bool{
	"me":     true,
	"i":      true,
	"you":    true,
	"myself": true,
}

// parseGeneric builds drafts from free text. Each message is stamped
// now - (len(lines) - lineIndex) minutes from the line that opened it, so
// only relative order is meaningful.
func parseGeneric(lines []string, identifier string, now time.Time) []draft {
	var (
		drafts []draft
		open   draft
		inMsg  bool
	)

	stamp := func(i int) time.Time {
		return now.Add(-time.Duration(len(lines)-i) * time.Minute)
	}
	flush := func() {
		if inMsg && open.content != "" {
			open.seq = len(drafts)
			drafts = append(drafts, open)
		}
		open = draft{}
		inMsg = false
	}

	for i, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		if m := genericPrefixPattern.FindStringSubmatch(text); m != nil {
			flush()
			prefix := strings.TrimSpace(m[1])
			open = draft{
				role:    genericRole(prefix, identifier),
				sender:  prefix,
				content: strings.TrimSpace(m[2]),
				ts:      stamp(i),
				kind:    KindText,
			}
			inMsg = true
			continue
		}

		if !inMsg {
			open = draft{role: RoleOther, content: text, ts: stamp(i), kind: KindText}
			inMsg = true
			continue
		}
		if open.content == "" {
			open.content = text
		} else {
			open.content += "\n" + text
		}
	}
	flush()

	return drafts
}

func genericRole(prefix, identifier string) Role {
	if identifier != "" && strings.EqualFold(prefix, identifier) {
		return RoleSelf
	}
	if selfTokens[strings.ToLower(prefix)] {
		return RoleSelf
	}
	return RoleOther
}
