package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Placeholders substituted for bodies the export does not carry as text.
const (
	CallPlaceholder = "[Missed call]"

	deletedBySender = "This message was deleted"
	deletedBySelf   = "You deleted this message"
	mediaMarker     = "<Media omitted>"
	editMarker      = "<This message was edited>"
)

var (
	// DD/MM/YYYY, HH:MM - rest. Two-digit years and a missing comma are tolerated.
	datedHeaderPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2}),?\s+(\d{1,2}):(\d{2})\s+-\s+(.*)$`)
	senderBodyPattern  = regexp.MustCompile(`^([^:]{1,64}):\s*(.*)$`)

	thirdPartyPattern = regexp.MustCompile(`(?i)\b(?:text|call|message|contact|tell|email|dm|visit|find|reach out to|talk to)\s+(?:your|ur|yr)\s+(?:mom|mum|mother|dad|father|parents|family|sister|brother|sibling|friends?|boss|manager|coworkers?|colleagues?|work|job|employer|wife|husband|partner|girlfriend|boyfriend|ex|kids?|children)\b`)
)

type datedHeader struct {
	ts        time.Time
	sender    string
	body      string
	hasSender bool
}

// parseDatedHeader matches a dated-log header line. The calendar fields are
// validated so "31/02/2024" is treated as plain text instead of rolling over.
func parseDatedHeader(line string) (datedHeader, bool) {
	m := datedHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		return datedHeader{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	if len(m[3]) == 2 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return datedHeader{}, false
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if ts.Day() != day {
		return datedHeader{}, false
	}

	h := datedHeader{ts: ts}
	if sb := senderBodyPattern.FindStringSubmatch(m[6]); sb != nil {
		h.sender = strings.TrimSpace(sb[1])
		h.body = strings.TrimSpace(sb[2])
		h.hasSender = h.sender != ""
	}
	return h, true
}

type parseState int

const (
	stateNoOpenMessage parseState = iota
	stateInMessage
)

// draft is a message under construction, before ordering and id assignment.
type draft struct {
	seq        int
	role       Role
	sender     string
	content    string
	ts         time.Time
	kind       Kind
	thirdParty bool
}

// datedLogAccumulator carries all parser state between lines.
type datedLogAccumulator struct {
	state   parseState
	open    draft
	drafts  []draft
	ind     Indicators
	resolve func(sender string) Role
	system  int
}

func newDatedLogAccumulator(resolve func(string) Role) *datedLogAccumulator {
	return &datedLogAccumulator{state: stateNoOpenMessage, resolve: resolve}
}

func (a *datedLogAccumulator) feed(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	h, ok := parseDatedHeader(line)
	if !ok {
		if a.state == stateInMessage {
			a.open.content += "\n" + line
		}
		return
	}

	a.flush()

	// Date-stamped notices ("Messages are end-to-end encrypted") have no sender.
	if !h.hasSender {
		a.system++
		return
	}

	role := a.resolve(h.sender)
	if h.body == "" {
		a.ind.CallAttempts++
		if role == RoleOther {
			a.ind.CallAttemptsByOther++
		}
		a.drafts = append(a.drafts, draft{
			seq:     len(a.drafts),
			role:    role,
			sender:  h.sender,
			content: CallPlaceholder,
			ts:      h.ts,
			kind:    KindCallAttempt,
		})
		return
	}

	a.open = draft{
		seq:     len(a.drafts),
		role:    role,
		sender:  h.sender,
		content: h.body,
		ts:      h.ts,
		kind:    KindText,
	}
	a.state = stateInMessage
}

// flush closes the open message, classifying markers on its full content.
func (a *datedLogAccumulator) flush() {
	if a.state != stateInMessage {
		return
	}
	d := a.open

	switch {
	case strings.Contains(d.content, deletedBySender), strings.Contains(d.content, deletedBySelf):
		d.kind = KindDeleted
		a.ind.Deletions++
	case strings.Contains(d.content, mediaMarker):
		d.kind = KindMedia
		a.ind.Media++
	}
	if strings.Contains(d.content, editMarker) {
		a.ind.Edits++
	}
	if d.role == RoleOther && thirdPartyPattern.MatchString(d.content) {
		d.thirdParty = true
		a.ind.ThirdPartyContact = true
	}

	a.drafts = append(a.drafts, d)
	a.open = draft{}
	a.state = stateNoOpenMessage
}

// finish flushes any trailing message and returns the accumulated drafts.
func (a *datedLogAccumulator) finish() ([]draft, Indicators) {
	a.flush()
	return a.drafts, a.ind
}

// senderNames lists distinct senders in first-appearance order, case-insensitively.
func senderNames(lines []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, line := range lines {
		h, ok := parseDatedHeader(line)
		if !ok || !h.hasSender {
			continue
		}
		key := strings.ToLower(h.sender)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, h.sender)
	}
	return names
}

// looksDatedLog reports whether any line is a dated header. Text before the
// first header is ignored by the dated-log parser.
func looksDatedLog(lines []string) bool {
	for _, line := range lines {
		if _, ok := parseDatedHeader(line); ok {
			return true
		}
	}
	return false
}
