package board

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

type BoardSessionSettings struct {
	TransportSettings *StreamTransportSettings
}

func DefaultBoardSessionSettings() *BoardSessionSettings {
	return &BoardSessionSettings{
		TransportSettings: DefaultStreamTransportSettings(),
	}
}

// BoardSession is the long-lived owner of one board view: the
// question store, the stream transport that feeds it, and the api
// client that originates mutations. All store writes happen on the
// session's apply loop, the sole reader of the transport channel, so
// the store needs no locking discipline of its own. Mutations issued
// through Api() deliberately do not touch the store; they complete
// when their echo arrives through the stream.
//
// The session lives for one page session. Close tears down the
// transport and the loop; there is no cross-session persistence.
type BoardSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId ulid.ULID

	api       *BoardApi
	transport *StreamTransport

	settings *BoardSessionSettings

	// guards store between the apply loop and snapshot readers
	stateLock sync.Mutex
	store     *QuestionStore

	// reconnect signals from the transport open callback,
	// drained by the apply loop
	reseed chan struct{}

	// coalesced change notifications
	update chan struct{}
}

func NewBoardSessionWithDefaults(ctx context.Context, apiUrl string, streamUrl string) (*BoardSession, error) {
	return NewBoardSession(ctx, apiUrl, streamUrl, DefaultBoardSessionSettings())
}

// NewBoardSession seeds the store from the rest snapshot, then opens
// the stream transport and starts the apply loop. A seed failure is
// returned to the caller; the session is not started half-open.
func NewBoardSession(ctx context.Context, apiUrl string, streamUrl string, settings *BoardSessionSettings) (*BoardSession, error) {
	cancelCtx, cancel := context.WithCancel(ctx)

	session := &BoardSession{
		ctx:        cancelCtx,
		cancel:     cancel,
		instanceId: ulid.Make(),
		api:        NewBoardApiWithContext(cancelCtx, apiUrl),
		settings:   settings,
		store:      NewQuestionStore(),
		reseed:     make(chan struct{}, 1),
		update:     make(chan struct{}, 1),
	}

	if err := session.seed(); err != nil {
		cancel()
		return nil, err
	}

	transportSettings := *settings.TransportSettings
	transportSettings.OpenCallback = func(reconnect bool) {
		if reconnect {
			// the stream has no replay protocol. Re-fetch the
			// snapshot and merge it through the idempotent apply
			// path to cover whatever was missed while disconnected.
			select {
			case session.reseed <- struct{}{}:
			default:
			}
		}
	}
	session.transport = NewStreamTransport(cancelCtx, streamUrl, &transportSettings)

	go session.run()

	return session, nil
}

func (self *BoardSession) seed() error {
	questions, err := self.api.GetQuestionsSync()
	if err != nil {
		return err
	}
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	for _, question := range questions {
		self.store.Apply(&NewQuestionEvent{
			Question: question,
		})
	}
	glog.V(1).Infof("[s]%s seeded %d questions\n", self.instanceId, len(questions))
	return nil
}

// the apply loop. Sole reader of the transport channel and sole
// writer of the store.
func (self *BoardSession) run() {
	defer self.cancel()

	for {
		select {
		case <-self.ctx.Done():
			return
		case <-self.reseed:
			if err := self.seed(); err != nil {
				glog.Infof("[s]%s reseed error = %s\n", self.instanceId, err)
				continue
			}
			self.notify()
		case frame, ok := <-self.transport.Receive():
			if !ok {
				return
			}
			HandleError(func() {
				self.applyFrame(frame)
			})
		}
	}
}

func (self *BoardSession) applyFrame(frame []byte) {
	event, err := DecodeEvent(frame)
	if err != nil {
		// malformed frames are dropped, never fatal
		glog.Infof("[s]%s drop frame = %s\n", self.instanceId, err)
		return
	}

	self.stateLock.Lock()
	self.store.Apply(event)
	self.stateLock.Unlock()

	self.notify()
}

func (self *BoardSession) notify() {
	select {
	case self.update <- struct{}{}:
	default:
	}
}

// Updates signals after the store changes. Notifications coalesce;
// read the current snapshot with Questions after each signal.
func (self *BoardSession) Updates() <-chan struct{} {
	return self.update
}

// Questions returns the current visible ordering.
func (self *BoardSession) Questions() []*Question {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.store.Ordered()
}

func (self *BoardSession) Question(questionId int64) *Question {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.store.Get(questionId)
}

func (self *BoardSession) Api() *BoardApi {
	return self.api
}

func (self *BoardSession) SetByJwt(byJwt string) {
	self.api.SetByJwt(byJwt)
}

func (self *BoardSession) InstanceId() ulid.ULID {
	return self.instanceId
}

func (self *BoardSession) Close() {
	self.cancel()
	if self.transport != nil {
		self.transport.Close()
	}
}
