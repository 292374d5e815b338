package control

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/notify"
)

// Wire keys.
const (
	keyMessage      = "message"
	keyMessageIndex = "message_index"
	keyPlaySound    = "play_sound"
	keyMath         = "math"
	keyQuestion     = "question"
	keyAnswer       = "answer"
	keyRequestedBy  = "requested_by"
	keyQueued       = "queued"
	keyInFlight     = "in_flight"
	keyWaiting      = "waiting"
	keyWindow       = "window"
	keyWindowActive = "window_active"
	keyRecent       = "recent"
	keyID           = "id"
	keyAction       = "action"
	keyResolved     = "resolved"
	keyOutcome      = "outcome"
	keySource       = "source"
	keyFiredAt      = "fired_at"
	keyAckAt        = "acknowledged_at"
	keyResolvedAt   = "resolved_at"
	keySubject      = "subject"
	keyAt           = "at"
)

func encodeEnqueue(p *EnqueueParams) map[string]any {
	fields := map[string]any{
		keyMessage:      p.Message,
		keyMessageIndex: p.MessageIndex,
		keyPlaySound:    p.PlaySound,
		keyMath:         p.Math,
		keyRequestedBy:  p.RequestedBy,
	}

	if p.Challenge != nil {
		fields[keyQuestion] = p.Challenge.Question
		fields[keyAnswer] = p.Challenge.Answer
	}

	return fields
}

func decodeEnqueue(in *structpb.Struct) *EnqueueParams {
	p := &EnqueueParams{
		Message:      stringField(in, keyMessage),
		MessageIndex: NoMessageIndex,
		PlaySound:    boolField(in, keyPlaySound),
		Math:         boolField(in, keyMath),
		RequestedBy:  stringField(in, keyRequestedBy),
	}

	if v, ok := in.GetFields()[keyMessageIndex]; ok {
		p.MessageIndex = int(math.Round(v.GetNumberValue()))
	}

	question, answer := stringField(in, keyQuestion), stringField(in, keyAnswer)
	if question != "" || answer != "" {
		p.Challenge = &alert.Challenge{Question: question, Answer: answer}
	}

	return p
}

func encodeStatus(s *Status) map[string]any {
	recent := make([]any, 0, len(s.Recent))
	for _, n := range s.Recent {
		recent = append(recent, map[string]any{
			keySubject: n.Subject,
			keyMessage: n.Message,
			keyAt:      formatTime(n.At),
		})
	}

	fields := map[string]any{
		keyWaiting:      s.Waiting,
		keyQueued:       s.Queued,
		keyWindow:       s.Window,
		keyWindowActive: s.WindowActive,
		keyRecent:       recent,
	}

	if s.InFlight != nil {
		record := encodeRecord(s.InFlight)
		record[keyQuestion] = s.Question
		fields[keyInFlight] = record
	}

	return fields
}

func decodeStatus(in *structpb.Struct) (*Status, error) {
	s := &Status{
		Waiting:      intField(in, keyWaiting),
		Queued:       intField(in, keyQueued),
		Window:       stringField(in, keyWindow),
		WindowActive: boolField(in, keyWindowActive),
	}

	if v, ok := in.GetFields()[keyInFlight]; ok && v.GetStructValue() != nil {
		record, err := decodeRecord(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("decode in-flight alert: %w", err)
		}

		s.InFlight = record
		s.Question = stringField(v.GetStructValue(), keyQuestion)
	}

	for _, item := range in.GetFields()[keyRecent].GetListValue().GetValues() {
		entry := item.GetStructValue()

		s.Recent = append(s.Recent, notify.Notification{
			Subject: stringField(entry, keySubject),
			Message: stringField(entry, keyMessage),
			At:      parseTime(stringField(entry, keyAt)),
		})
	}

	return s, nil
}

// encodeRecord leaves the challenge answer out.
func encodeRecord(r *alert.Record) map[string]any {
	fields := map[string]any{
		keyID:          r.ID.String(),
		keyOutcome:     string(r.Outcome),
		keyFiredAt:     formatTime(r.FiredAt),
		keyMessage:     r.Request.Message,
		keyPlaySound:   r.Request.PlaySound,
		keySource:      string(r.Request.Source),
		keyRequestedBy: r.Request.RequestedBy,
	}

	if r.AcknowledgedAt != nil {
		fields[keyAckAt] = formatTime(*r.AcknowledgedAt)
	}

	if r.ResolvedAt != nil {
		fields[keyResolvedAt] = formatTime(*r.ResolvedAt)
	}

	return fields
}

func decodeRecord(in *structpb.Struct) (*alert.Record, error) {
	id, err := uuid.Parse(stringField(in, keyID))
	if err != nil {
		return nil, fmt.Errorf("parse alert id: %w", err)
	}

	r := &alert.Record{
		ID: id,
		Request: &alert.Request{
			Message:     stringField(in, keyMessage),
			PlaySound:   boolField(in, keyPlaySound),
			Source:      alert.Source(stringField(in, keySource)),
			RequestedBy: stringField(in, keyRequestedBy),
		},
		FiredAt: parseTime(stringField(in, keyFiredAt)),
		Outcome: alert.Outcome(stringField(in, keyOutcome)),
	}

	if v := stringField(in, keyAckAt); v != "" {
		at := parseTime(v)
		r.AcknowledgedAt = &at
	}

	if v := stringField(in, keyResolvedAt); v != "" {
		at := parseTime(v)
		r.ResolvedAt = &at
	}

	return r, nil
}

func encodeRespondResult(r *RespondResult) map[string]any {
	return map[string]any{
		keyResolved: r.Resolved,
		keyQuestion: r.Question,
		keyOutcome:  string(r.Outcome),
	}
}

func decodeRespondResult(in *structpb.Struct) *RespondResult {
	return &RespondResult{
		Resolved: boolField(in, keyResolved),
		Question: stringField(in, keyQuestion),
		Outcome:  alert.Outcome(stringField(in, keyOutcome)),
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func intField(s *structpb.Struct, key string) int {
	return int(math.Round(s.GetFields()[key].GetNumberValue()))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339Nano)
}

// parseTime returns the zero time for malformed input.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
