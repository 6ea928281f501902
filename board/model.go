package board

import (
	"fmt"
	"strings"
	"time"
)

type QuestionStatus string

const (
	StatusPending   QuestionStatus = "Pending"
	StatusAnswered  QuestionStatus = "Answered"
	StatusEscalated QuestionStatus = "Escalated"
)

func ParseQuestionStatus(status string) (QuestionStatus, error) {
	switch QuestionStatus(status) {
	case StatusPending, StatusAnswered, StatusEscalated:
		return QuestionStatus(status), nil
	default:
		return "", fmt.Errorf("Unknown question status: %s", status)
	}
}

// the board server emits `datetime.isoformat()` timestamps,
// which omit the zone when the stored value is naive
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type Timestamp struct {
	time.Time
}

func (self *Timestamp) UnmarshalJSON(src []byte) error {
	s := strings.Trim(string(src), `"`)
	if s == "" || s == "null" {
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			self.Time = t
			return nil
		}
	}
	return err
}

func (self Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, self.Format(time.RFC3339Nano))), nil
}

// an answer is owned by exactly one question and never outlives it
type Answer struct {
	Id        int64     `json:"id"`
	Content   string    `json:"content"`
	UserId    int64     `json:"user_id"`
	Timestamp Timestamp `json:"timestamp"`
	// set when the answer frame carries the parent id inline
	// instead of in the envelope
	QuestionId *int64 `json:"question_id,omitempty"`
}

type Question struct {
	Id          int64          `json:"id"`
	Content     string         `json:"content"`
	Timestamp   Timestamp      `json:"timestamp"`
	Status      QuestionStatus `json:"status"`
	IsAnonymous bool           `json:"is_anonymous"`
	Sentiment   *string        `json:"sentiment,omitempty"`
	Answers     []*Answer      `json:"answers,omitempty"`
}
