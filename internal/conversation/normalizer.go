package conversation

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.uber.org/zap"
)

const maxLineSize = 1024 * 1024

// Normalizer converts raw input into a Transcript. Safe for concurrent use.
type Normalizer struct {
	now    func() time.Time
	logger *logging.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the clock used for synthetic free-text timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize produces an ordered transcript from in.
//
// Returns *AmbiguityError when a dated log names more than one sender and
// in.RoleIdentifier is empty, and ErrNoUsableMessages when nothing survives.
func (n *Normalizer) Normalize(ctx context.Context, in Input) (*Transcript, error) {
	if in.Messages != nil {
		return n.fromMessages(ctx, in.Messages)
	}

	lines, err := splitLines(in.Text)
	if err != nil {
		return nil, err
	}

	format := in.Format
	if format == FormatAuto {
		format = FormatGeneric
		if looksDatedLog(lines) {
			format = FormatDatedLog
		}
	}

	var (
		drafts []draft
		ind    Indicators
	)
	identifier := strings.TrimSpace(in.RoleIdentifier)

	switch format {
	case FormatDatedLog:
		senders := senderNames(lines)
		if identifier == "" && len(senders) > 1 {
			n.logger.Info(ctx, "role identifier required", zap.Int("senders", len(senders)))
			return nil, &AmbiguityError{Candidates: senders}
		}
		acc := newDatedLogAccumulator(func(sender string) Role {
			if identifier != "" && strings.EqualFold(sender, identifier) {
				return RoleSelf
			}
			return RoleOther
		})
		for _, line := range lines {
			acc.feed(line)
		}
		drafts, ind = acc.finish()
		n.logger.Debug(ctx, "parsed dated log",
			zap.Int("drafts", len(drafts)),
			zap.Int("system_lines", acc.system),
			zap.Int("call_attempts", ind.CallAttempts),
			zap.Bool("third_party_contact", ind.ThirdPartyContact),
		)
	case FormatGeneric:
		drafts = parseGeneric(lines, identifier, n.now())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if len(drafts) == 0 {
		return nil, ErrNoUsableMessages
	}

	msgs, ind := finalize(drafts, ind)
	n.logger.Debug(ctx, "normalized transcript",
		zap.String("format", string(format)),
		zap.Int("messages", len(msgs)),
	)
	return newTranscript(msgs, ind, format), nil
}

// SenderNames lists the distinct dated-log senders in text in first-appearance order.
func SenderNames(text string) ([]string, error) {
	lines, err := splitLines(text)
	if err != nil {
		return nil, err
	}
	return senderNames(lines), nil
}

func (n *Normalizer) fromMessages(ctx context.Context, in []Message) (*Transcript, error) {
	drafts := make([]draft, 0, len(in))
	for i, m := range in {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidMessage, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		kind := m.Kind
		if kind == "" {
			kind = KindText
		}
		drafts = append(drafts, draft{
			seq:     len(drafts),
			role:    m.Role,
			sender:  m.Sender,
			content: m.Content,
			ts:      m.Timestamp,
			kind:    kind,
		})
	}
	if len(drafts) == 0 {
		return nil, ErrNoUsableMessages
	}

	msgs, ind := finalize(drafts, Indicators{})
	n.logger.Debug(ctx, "normalized structured messages", zap.Int("messages", len(msgs)))
	return newTranscript(msgs, ind, FormatGeneric), nil
}

// finalize orders drafts by timestamp (ties by sequence), assigns ids and
// records which messages carry indicator sources.
func finalize(drafts []draft, ind Indicators) ([]Message, Indicators) {
	sort.SliceStable(drafts, func(i, j int) bool {
		if drafts[i].ts.Equal(drafts[j].ts) {
			return drafts[i].seq < drafts[j].seq
		}
		return drafts[i].ts.Before(drafts[j].ts)
	})

	msgs := make([]Message, len(drafts))
	for i, d := range drafts {
		id := fmt.Sprintf("msg-%d", i+1)
		msgs[i] = Message{
			ID:        id,
			Role:      d.role,
			Content:   d.content,
			Timestamp: d.ts,
			Sender:    d.sender,
			Kind:      d.kind,
		}
		if d.kind == KindCallAttempt && d.role == RoleOther && ind.FirstOtherCallID == "" {
			ind.FirstOtherCallID = id
		}
		if d.thirdParty && ind.ThirdPartyMessageID == "" {
			ind.ThirdPartyMessageID = id
		}
	}
	return msgs, ind
}

func splitLines(text string) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r \t")
		lines = append(lines, strings.TrimLeft(line, "\ufeff\u200e"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return lines, nil
}
