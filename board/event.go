package board

import (
	"encoding/json"
)

// Events are the decoded, typed form of stream frames.
// Decoding is stateless: each frame stands alone, and a frame that
// matches none of the known shapes is rejected without affecting
// the connection or any later frame.

const (
	frameTypeNewQuestion  = "new_question"
	frameTypeNewAnswer    = "new_answer"
	frameTypeStatusUpdate = "status_update"
)

type Event interface {
	isEvent()
}

type NewQuestionEvent struct {
	Question *Question
}

func (self *NewQuestionEvent) isEvent() {}

type NewAnswerEvent struct {
	QuestionId int64
	Answer     *Answer
}

func (self *NewAnswerEvent) isEvent() {}

type StatusUpdateEvent struct {
	QuestionId int64
	Status     QuestionStatus
	// nil when the frame does not carry a sentiment.
	// the store must then leave any previously set sentiment alone.
	Sentiment *string
}

func (self *StatusUpdateEvent) isEvent() {}

type eventEnvelope struct {
	Type string `json:"type"`
	// set by new_answer frames that carry the parent id
	// at the top level instead of inside data
	QuestionId *int64          `json:"question_id,omitempty"`
	Data       json.RawMessage `json:"data"`
}

type statusUpdateData struct {
	Id        int64   `json:"id"`
	Status    string  `json:"status"`
	Sentiment *string `json:"sentiment,omitempty"`
}

func DecodeEvent(frame []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, newDecodeError("malformed frame: %s", err)
	}

	switch envelope.Type {
	case frameTypeNewQuestion:
		question := &Question{}
		if err := json.Unmarshal(envelope.Data, question); err != nil {
			return nil, newDecodeError("malformed new_question data: %s", err)
		}
		if question.Id == 0 {
			return nil, newDecodeError("new_question without an id")
		}
		if _, err := ParseQuestionStatus(string(question.Status)); err != nil {
			return nil, newDecodeError("new_question with bad status: %s", question.Status)
		}
		return &NewQuestionEvent{
			Question: question,
		}, nil

	case frameTypeNewAnswer:
		answer := &Answer{}
		if err := json.Unmarshal(envelope.Data, answer); err != nil {
			return nil, newDecodeError("malformed new_answer data: %s", err)
		}
		// the parent id may be in the envelope or embedded in the answer
		var questionId int64
		if envelope.QuestionId != nil {
			questionId = *envelope.QuestionId
		} else if answer.QuestionId != nil {
			questionId = *answer.QuestionId
		} else {
			return nil, newDecodeError("new_answer without a question id")
		}
		return &NewAnswerEvent{
			QuestionId: questionId,
			Answer:     answer,
		}, nil

	case frameTypeStatusUpdate:
		var data statusUpdateData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, newDecodeError("malformed status_update data: %s", err)
		}
		if data.Id == 0 {
			return nil, newDecodeError("status_update without an id")
		}
		status, err := ParseQuestionStatus(data.Status)
		if err != nil {
			return nil, newDecodeError("status_update with bad status: %s", data.Status)
		}
		return &StatusUpdateEvent{
			QuestionId: data.Id,
			Status:     status,
			Sentiment:  data.Sentiment,
		}, nil

	default:
		return nil, newDecodeError("unknown frame type: %s", envelope.Type)
	}
}
