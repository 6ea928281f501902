package board

import (
	"github.com/golang/glog"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// QuestionStore is the reconciliation point for the live board.
// It holds the authoritative local map of questions and derives the
// visible ordering from it after every mutation. The store is a plain
// data structure with no locking of its own. All writes are expected
// to come from a single apply loop (see BoardSession), which is what
// keeps the map and the ordering consistent without mutual exclusion.

type QuestionStore struct {
	questions map[int64]*Question
	// arrival breaks timestamp ties so that the ordering is a
	// stable function of delivery order
	arrival     map[int64]int
	nextArrival int

	ordered []*Question
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{
		questions: map[int64]*Question{},
		arrival:   map[int64]int{},
		ordered:   []*Question{},
	}
}

// Apply merges one decoded event into the store and recomputes the
// visible ordering before returning. It never fails outwardly: events
// that refer to unknown questions degrade to no-ops because the stream
// is at-most-once and may reorder across the rest snapshot.
func (self *QuestionStore) Apply(event Event) {
	switch v := event.(type) {
	case *NewQuestionEvent:
		self.applyNewQuestion(v.Question)
	case *NewAnswerEvent:
		self.applyNewAnswer(v.QuestionId, v.Answer)
	case *StatusUpdateEvent:
		self.applyStatusUpdate(v.QuestionId, v.Status, v.Sentiment)
	default:
		glog.Infof("[store]drop unknown event %T\n", event)
	}
	self.reorder()
}

func (self *QuestionStore) applyNewQuestion(question *Question) {
	existing, ok := self.questions[question.Id]
	if !ok {
		self.questions[question.Id] = question
		self.arrival[question.Id] = self.nextArrival
		self.nextArrival += 1
		return
	}

	// duplicate delivery. Take all scalar fields from the incoming
	// payload but keep any answers already attached locally that the
	// payload does not carry, so that a re-delivered question can
	// never lose answers observed in between.
	answerIds := map[int64]bool{}
	for _, answer := range question.Answers {
		answerIds[answer.Id] = true
	}
	for _, answer := range existing.Answers {
		if !answerIds[answer.Id] {
			question.Answers = append(question.Answers, answer)
		}
	}
	self.questions[question.Id] = question
}

func (self *QuestionStore) applyNewAnswer(questionId int64, answer *Answer) {
	question, ok := self.questions[questionId]
	if !ok {
		// the answer outran its question. At-most-once delivery means
		// there is nothing to wait for, so drop it.
		glog.Infof("[store]answer %d for unknown question %d\n", answer.Id, questionId)
		return
	}
	question.Answers = append(question.Answers, answer)
}

func (self *QuestionStore) applyStatusUpdate(questionId int64, status QuestionStatus, sentiment *string) {
	question, ok := self.questions[questionId]
	if !ok {
		glog.Infof("[store]status update for unknown question %d\n", questionId)
		return
	}
	question.Status = status
	if sentiment != nil {
		question.Sentiment = sentiment
	}
}

// the visible ordering is always recomputed whole from the map,
// never incrementally resorted
func (self *QuestionStore) reorder() {
	questions := maps.Values(self.questions)
	slices.SortFunc(questions, func(a *Question, b *Question) int {
		priorityA := statusPriority(a.Status)
		priorityB := statusPriority(b.Status)
		if priorityA != priorityB {
			return priorityA - priorityB
		}
		if a.Timestamp.After(b.Timestamp.Time) {
			return -1
		}
		if b.Timestamp.After(a.Timestamp.Time) {
			return 1
		}
		return self.arrival[a.Id] - self.arrival[b.Id]
	})
	self.ordered = questions
}

func statusPriority(status QuestionStatus) int {
	if status == StatusEscalated {
		return 0
	}
	return 1
}

// Ordered returns the current visible ordering:
// escalated questions first, then the rest, newest first within each.
func (self *QuestionStore) Ordered() []*Question {
	ordered := make([]*Question, len(self.ordered))
	copy(ordered, self.ordered)
	return ordered
}

func (self *QuestionStore) Get(questionId int64) *Question {
	return self.questions[questionId]
}

func (self *QuestionStore) Len() int {
	return len(self.questions)
}
