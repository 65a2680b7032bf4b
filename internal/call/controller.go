// Package call establishes and tears down one-to-one voice calls whose
// signaling travels over a room event stream. A single Controller owns the
// call state; local intents, inbound signaling and async completions are all
// serialized through its dispatcher goroutine.
package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petervdpas/roomcall/internal/room"
	"github.com/petervdpas/roomcall/internal/signal"
	"github.com/petervdpas/roomcall/internal/util"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("call")

// Config holds the controller deadlines. A zero or negative timeout is
// disabled.
type Config struct {
	OutgoingTimeout time.Duration
	IncomingTimeout time.Duration
	ConnectTimeout  time.Duration
	InviteLifetime  time.Duration
	CandidateBatch  time.Duration
	SendTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		OutgoingTimeout: 60 * time.Second,
		IncomingTimeout: 30 * time.Second,
		ConnectTimeout:  30 * time.Second,
		InviteLifetime:  60 * time.Second,
		CandidateBatch:  500 * time.Millisecond,
		SendTimeout:     10 * time.Second,
	}
}

// Transport is the signaling surface the controller needs; signal.Adapter
// satisfies it.
type Transport interface {
	UserID() string
	Send(ctx context.Context, roomID string, m signal.Message) error
	Subscribe(roomID string) (<-chan signal.Inbound, func())
}

type result struct {
	callID string
	err    error
}

type (
	startIntent struct {
		roomID, peerID string
		reply          chan result
	}
	answerIntent struct{ reply chan result }
	endIntent    struct {
		reason string
		reply  chan result
	}
)

type (
	offerReady struct {
		callID string
		engine Negotiator
		offer  signal.SessionDescription
		err    error
	}
	answerReady struct {
		callID string
		engine Negotiator
		answer signal.SessionDescription
		err    error
	}
	sendDone struct {
		callID string
		kind   string
		err    error
	}
	transportChanged struct {
		callID string
		state  TransportState
	}
	signalingChanged struct {
		callID string
		state  SDPState
	}
	timerExpired struct {
		callID string
		token  uint64
	}
	durationTick struct{ callID string }
)

// activeCall is the dispatcher's private bookkeeping for the current call.
type activeCall struct {
	id          string
	partyID     string
	roomID      string
	peerID      string
	remoteParty string
	incoming    bool
	signaled    bool
	remoteOffer signal.SessionDescription
	session     negotiationSession
	batcher     *Batcher
	createdAt   time.Time
	timerToken  uint64
	tickStop    chan struct{}
	waiters     []chan result
}

type Controller struct {
	cfg       Config
	transport Transport
	members   room.Directory
	newEngine EngineFactory
	history   *Recorder
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	intents   chan any
	inbound   chan signal.Inbound
	events    chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	bg        sync.WaitGroup

	timer Supervisor

	mu    sync.RWMutex
	state CallState

	subMu sync.Mutex
	subs  map[chan CallState]struct{}

	watchMu sync.Mutex
	watches map[string]func()

	// Owned by the dispatcher.
	call  *activeCall
	ended *util.RingBuffer[string]
}

// New starts a controller. members may be nil, in which case StartCall
// needs an explicit peer and peer names stay empty.
func New(cfg Config, transport Transport, members room.Directory, newEngine EngineFactory, history *Recorder) *Controller {
	def := DefaultConfig()
	if cfg.CandidateBatch <= 0 {
		cfg.CandidateBatch = def.CandidateBatch
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if history == nil {
		history = NewRecorder(nil, DefaultHistoryLimit)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		transport: transport,
		members:   members,
		newEngine: newEngine,
		history:   history,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		intents:   make(chan any),
		inbound:   make(chan signal.Inbound, 32),
		events:    make(chan any, 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		state:     CallState{ConnectionState: StateIdle},
		subs:      map[chan CallState]struct{}{},
		watches:   map[string]func(){},
		ended:     util.NewRingBuffer[string](64),
	}
	go c.run()
	return c
}

// StartCall calls peerID in roomID, or the first other member of the room
// when peerID is empty. It returns the new call id once the invite has been
// sent. Cancelling ctx stops the wait, not the call.
func (c *Controller) StartCall(ctx context.Context, roomID, peerID string) (string, error) {
	reply := make(chan result, 1)
	r := c.request(ctx, startIntent{roomID: roomID, peerID: peerID, reply: reply}, reply)
	return r.callID, r.err
}

// AnswerCall accepts the ringing call and returns once the answer is sent.
func (c *Controller) AnswerCall(ctx context.Context) error {
	reply := make(chan result, 1)
	return c.request(ctx, answerIntent{reply: reply}, reply).err
}

// EndCall hangs up (or declines) the current call. An empty reason means
// user_hangup. Ending when idle is a no-op.
func (c *Controller) EndCall(ctx context.Context, reason string) error {
	reply := make(chan result, 1)
	return c.request(ctx, endIntent{reason: reason, reply: reply}, reply).err
}

// State returns a copy of the current call state.
func (c *Controller) State() CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Subscribe streams state snapshots. Slow readers miss intermediate ones.
func (c *Controller) Subscribe() (<-chan CallState, func()) {
	ch := make(chan CallState, 16)
	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()
	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

func (c *Controller) History(limit int) []HistoryRecord {
	return c.history.List(limit)
}

// Watch starts listening for call signaling in roomID. Idempotent.
func (c *Controller) Watch(roomID string) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if _, ok := c.watches[roomID]; ok {
		return
	}
	select {
	case <-c.quit:
		return
	default:
	}
	ch, cancel := c.transport.Subscribe(roomID)
	c.watches[roomID] = cancel
	go func() {
		for in := range ch {
			select {
			case c.inbound <- in:
			case <-c.quit:
				return
			}
		}
	}()
	log.Debugf("CALL: watching room %s", roomID)
}

// Close ends any active call and waits for background work to finish.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done

	c.watchMu.Lock()
	for roomID, cancel := range c.watches {
		cancel()
		delete(c.watches, roomID)
	}
	c.watchMu.Unlock()

	c.cancel()
	c.bg.Wait()

	c.subMu.Lock()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
	c.subMu.Unlock()
	return nil
}

func (c *Controller) request(ctx context.Context, in any, reply chan result) result {
	select {
	case c.intents <- in:
	case <-c.quit:
		return result{err: ErrClosed}
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-c.done:
		select {
		case r := <-reply:
			return r
		default:
			return result{err: ErrClosed}
		}
	}
}

// post hands an async completion to the dispatcher. It reports false once
// the controller is shutting down.
func (c *Controller) post(ev any) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.quit:
		return false
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			c.teardown(ReasonUserHangup, ErrClosed)
			return
		case in := <-c.intents:
			c.handleIntent(in)
		case msg := <-c.inbound:
			c.handleInbound(msg)
		case ev := <-c.events:
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleIntent(in any) {
	switch in := in.(type) {
	case startIntent:
		c.handleStart(in)
	case answerIntent:
		c.handleAnswer(in)
	case endIntent:
		if c.call == nil {
			in.reply <- result{}
			return
		}
		callID := c.call.id
		reason := in.reason
		if reason == "" {
			reason = ReasonUserHangup
		}
		log.Infof("CALL [%s]: ending locally (%s)", callID, reason)
		c.teardown(reason, ErrCallEnded)
		in.reply <- result{callID: callID}
	}
}

func (c *Controller) handleInbound(in signal.Inbound) {
	switch m := in.Message.(type) {
	case signal.Invite:
		c.onInvite(in, m)
	case signal.Answer:
		c.onAnswer(m)
	case signal.Candidates:
		c.onCandidates(m)
	case signal.Hangup:
		c.onHangup(m)
	}
}

func (c *Controller) handleEvent(ev any) {
	switch ev := ev.(type) {
	case offerReady:
		c.onOfferReady(ev)
	case answerReady:
		c.onAnswerReady(ev)
	case sendDone:
		c.onSendDone(ev)
	case transportChanged:
		c.onTransport(ev)
	case signalingChanged:
		if call := c.current(ev.callID); call != nil && ev.state == SDPHaveLocalOffer {
			applied, err := call.session.retryPendingAnswer()
			c.afterAnswer(call, applied, err)
		}
	case timerExpired:
		call := c.current(ev.callID)
		if call == nil || call.timerToken != ev.token {
			return
		}
		log.Infof("CALL [%s]: timed out in %s", call.id, c.state.ConnectionState)
		c.teardown(ReasonTimeout, ErrTimeout)
	case durationTick:
		if call := c.current(ev.callID); call != nil && c.state.StartedAt != nil {
			next := c.state.clone()
			next.DurationSeconds = uint64(c.now().Sub(*next.StartedAt) / time.Second)
			c.commit(next)
		}
	}
}

// current returns the active call if its id is callID.
func (c *Controller) current(callID string) *activeCall {
	if c.call == nil || c.call.id != callID {
		return nil
	}
	return c.call
}

func (c *Controller) handleStart(in startIntent) {
	if c.call != nil {
		in.reply <- result{err: ErrCallActive}
		return
	}
	self := c.transport.UserID()
	peerID := in.peerID
	if peerID == "" && c.members != nil {
		for _, m := range c.members.Members(in.roomID) {
			if m.UserID != self {
				peerID = m.UserID
				break
			}
		}
	}
	if peerID == "" || peerID == self {
		in.reply <- result{err: ErrNoPeer}
		return
	}

	c.Watch(in.roomID)

	call := &activeCall{
		id:        uuid.NewString(),
		partyID:   uuid.NewString(),
		roomID:    in.roomID,
		peerID:    peerID,
		createdAt: c.now(),
		waiters:   []chan result{in.reply},
	}
	call.batcher = c.newBatcher(call)
	c.call = call

	name, avatar := c.profile(in.roomID, peerID)
	c.commit(CallState{
		Active:          true,
		RoomID:          in.roomID,
		PeerID:          peerID,
		PeerName:        name,
		PeerAvatar:      avatar,
		CallID:          call.id,
		ConnectionState: StateCalling,
	})
	c.arm(call, c.cfg.OutgoingTimeout)
	log.Infof("CALL [%s]: calling %s in %s", call.id, peerID, in.roomID)

	go c.prepareOffer(call.id, call.batcher)
}

func (c *Controller) prepareOffer(callID string, b *Batcher) {
	eng, err := c.newEngine(c.ctx, callID, c.hooks(callID, b))
	var offer signal.SessionDescription
	if err == nil {
		offer, err = eng.CreateOffer(c.ctx)
	}
	if !c.post(offerReady{callID: callID, engine: eng, offer: offer, err: err}) && eng != nil {
		_ = eng.Close()
	}
}

func (c *Controller) onOfferReady(ev offerReady) {
	call := c.current(ev.callID)
	if call == nil {
		if ev.engine != nil {
			c.closeEngine(ev.engine)
		}
		return
	}
	if ev.err != nil {
		if ev.engine != nil {
			c.closeEngine(ev.engine)
		}
		log.Warnf("CALL [%s]: offer setup failed: %v", call.id, ev.err)
		c.teardown(ReasonFailed, ev.err)
		return
	}
	call.session.engine = ev.engine
	call.signaled = true
	c.sendAsync(call, "invite", signal.Invite{
		CallID:   call.id,
		PartyID:  call.partyID,
		Offer:    ev.offer,
		Lifetime: c.cfg.InviteLifetime.Milliseconds(),
		Invitee:  call.peerID,
	})

	// An answer may have overtaken our own offer completion.
	applied, err := call.session.retryPendingAnswer()
	c.afterAnswer(call, applied, err)
}

func (c *Controller) onInvite(in signal.Inbound, m signal.Invite) {
	self := c.transport.UserID()
	switch {
	case in.Sender == self:
		return
	case c.call != nil:
		if c.call.id != m.CallID {
			log.Infof("CALL [%s]: ignoring invite from %s, busy with %s", m.CallID, in.Sender, c.call.id)
		}
		return
	case m.Invitee != "" && m.Invitee != self:
		return
	case c.wasEnded(m.CallID):
		return
	case m.Lifetime > 0 && in.OriginTS > 0 && in.OriginTS+m.Lifetime < c.now().UnixMilli():
		log.Infof("CALL [%s]: ignoring expired invite from %s", m.CallID, in.Sender)
		return
	}

	call := &activeCall{
		id:          m.CallID,
		partyID:     uuid.NewString(),
		roomID:      in.RoomID,
		peerID:      in.Sender,
		remoteParty: m.PartyID,
		incoming:    true,
		signaled:    true,
		remoteOffer: m.Offer,
		createdAt:   c.now(),
	}
	call.batcher = c.newBatcher(call)
	c.call = call

	name, avatar := c.profile(in.RoomID, in.Sender)
	c.commit(CallState{
		Active:          true,
		Incoming:        true,
		RoomID:          in.RoomID,
		PeerID:          in.Sender,
		PeerName:        name,
		PeerAvatar:      avatar,
		CallID:          call.id,
		ConnectionState: StateRinging,
	})
	c.arm(call, c.cfg.IncomingTimeout)
	log.Infof("CALL [%s]: ringing, invite from %s in %s", call.id, in.Sender, in.RoomID)
}

func (c *Controller) handleAnswer(in answerIntent) {
	call := c.call
	if call == nil || !call.incoming || c.state.ConnectionState != StateRinging {
		in.reply <- result{err: ErrNoIncomingCall}
		return
	}
	c.disarm(call)
	call.waiters = append(call.waiters, in.reply)

	next := c.state.clone()
	next.ConnectionState = StateConnecting
	c.commit(next)
	c.arm(call, c.cfg.ConnectTimeout)
	log.Infof("CALL [%s]: answering", call.id)

	go c.prepareAnswer(call.id, call.remoteOffer, call.batcher)
}

func (c *Controller) prepareAnswer(callID string, offer signal.SessionDescription, b *Batcher) {
	eng, err := c.newEngine(c.ctx, callID, c.hooks(callID, b))
	var answer signal.SessionDescription
	if err == nil {
		answer, err = eng.AcceptOfferAndCreateAnswer(c.ctx, offer)
	}
	if !c.post(answerReady{callID: callID, engine: eng, answer: answer, err: err}) && eng != nil {
		_ = eng.Close()
	}
}

func (c *Controller) onAnswerReady(ev answerReady) {
	call := c.current(ev.callID)
	if call == nil {
		if ev.engine != nil {
			c.closeEngine(ev.engine)
		}
		return
	}
	if ev.err != nil {
		if ev.engine != nil {
			c.closeEngine(ev.engine)
		}
		log.Warnf("CALL [%s]: answer setup failed: %v", call.id, ev.err)
		c.teardown(ReasonFailed, ev.err)
		return
	}
	call.session.engine = ev.engine
	call.session.remoteApplied = true
	if err := call.session.flushCandidates(); err != nil {
		log.Warnf("CALL [%s]: buffered candidates: %v", call.id, err)
	}
	c.sendAsync(call, "answer", signal.Answer{
		CallID:  call.id,
		PartyID: call.partyID,
		Answer:  ev.answer,
	})
}

func (c *Controller) onAnswer(m signal.Answer) {
	call := c.current(m.CallID)
	if call == nil || call.incoming || m.PartyID == call.partyID {
		return
	}
	if call.session.answerApplied || call.session.pendingAnswer != nil {
		log.Debugf("CALL [%s]: duplicate answer from party %s", call.id, m.PartyID)
		return
	}
	if call.remoteParty == "" {
		call.remoteParty = m.PartyID
	} else if m.PartyID != call.remoteParty {
		return
	}

	if c.state.ConnectionState == StateCalling {
		next := c.state.clone()
		next.ConnectionState = StateConnecting
		c.commit(next)
	}

	applied, err := call.session.applyAnswer(m.Answer)
	if err == nil && !applied {
		log.Infof("CALL [%s]: answer held until the local offer is set", call.id)
	}
	c.afterAnswer(call, applied, err)
}

// afterAnswer finishes a remote answer attempt. The outgoing deadline is
// only swapped for the connect deadline once the answer actually applied.
func (c *Controller) afterAnswer(call *activeCall, applied bool, err error) {
	if err != nil {
		log.Warnf("CALL [%s]: remote answer rejected: %v", call.id, err)
		c.teardown(ReasonFailed, err)
		return
	}
	if !applied {
		return
	}
	log.Infof("CALL [%s]: answer applied", call.id)
	if err := call.session.flushCandidates(); err != nil {
		log.Warnf("CALL [%s]: buffered candidates: %v", call.id, err)
	}
	if c.state.ConnectionState != StateConnected {
		c.arm(call, c.cfg.ConnectTimeout)
	}
}

func (c *Controller) onCandidates(m signal.Candidates) {
	call := c.current(m.CallID)
	if call == nil || m.PartyID == call.partyID {
		return
	}
	if call.remoteParty != "" && m.PartyID != call.remoteParty {
		return
	}
	if err := call.session.addCandidates(m.Candidates); err != nil {
		log.Warnf("CALL [%s]: remote candidates: %v", call.id, err)
	}
}

func (c *Controller) onHangup(m signal.Hangup) {
	call := c.current(m.CallID)
	if call == nil || m.PartyID == call.partyID {
		return
	}
	if call.remoteParty != "" && m.PartyID != "" && m.PartyID != call.remoteParty {
		return
	}
	log.Infof("CALL [%s]: remote hangup (%s)", call.id, m.Reason)
	c.teardown(ReasonHangup, ErrRemoteHangup)
}

func (c *Controller) onTransport(ev transportChanged) {
	call := c.current(ev.callID)
	if call == nil {
		return
	}
	switch ev.state {
	case TransportConnected:
		if c.state.ConnectionState == StateConnected {
			return
		}
		c.disarm(call)
		next := c.state.clone()
		next.ConnectionState = StateConnected
		if next.StartedAt == nil {
			now := c.now()
			next.StartedAt = &now
			next.DurationSeconds = 0
		}
		c.commit(next)
		if call.tickStop == nil {
			c.startTicker(call)
		}
		log.Infof("CALL [%s]: connected", call.id)
	case TransportFailed:
		next := c.state.clone()
		next.ConnectionState = StateFailed
		c.commit(next)
		c.teardown(ReasonFailed, ErrTransportFailed)
	case TransportDisconnected:
		log.Warnf("CALL [%s]: transport disconnected, waiting for recovery", call.id)
	}
}

func (c *Controller) onSendDone(ev sendDone) {
	call := c.current(ev.callID)
	if call == nil {
		if ev.err != nil {
			log.Debugf("CALL [%s]: %s send failed after call ended: %v", ev.callID, ev.kind, ev.err)
		}
		return
	}
	if ev.err != nil {
		log.Warnf("CALL [%s]: %s send failed: %v", call.id, ev.kind, ev.err)
		c.teardown(ReasonFailed, fmt.Errorf("%w: %v", ErrSignalingSendFailed, ev.err))
		return
	}
	log.Debugf("CALL [%s]: %s sent", call.id, ev.kind)
	call.batcher.Release()
	c.resolve(call, result{callID: call.id})
}

// teardown is the single exit path for a call.
func (c *Controller) teardown(reason string, cause error) {
	call := c.call
	if call == nil {
		return
	}
	c.call = nil

	c.disarm(call)
	if call.tickStop != nil {
		close(call.tickStop)
		call.tickStop = nil
	}
	call.batcher.Stop()

	var stats Stats
	if eng := call.session.engine; eng != nil {
		stats = eng.Stats()
		c.closeEngine(eng)
	}
	if call.signaled && reason != ReasonHangup && reason != ReasonTimeout {
		c.sendHangup(call, reason)
	}

	end := c.now()
	prev := c.state
	next := prev.clone()
	next.Active = false
	next.ConnectionState = StateEnded
	next.EndedReason = reason
	if next.StartedAt != nil {
		next.DurationSeconds = uint64(end.Sub(*next.StartedAt) / time.Second)
	}
	c.commit(next)
	c.ended.Push(call.id)

	rec := c.historyRecord(call, prev, next, stats, end)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.history.Record(rec)
	}()

	c.resolve(call, result{callID: call.id, err: cause})
	log.Infof("CALL [%s]: ended (%s)", call.id, reason)
}

func (c *Controller) historyRecord(call *activeCall, prev, final CallState, stats Stats, end time.Time) HistoryRecord {
	self := c.transport.UserID()
	selfName, selfAvatar := c.profile(call.roomID, self)
	if selfName == "" {
		selfName = self
	}
	peerName := prev.PeerName
	if peerName == "" {
		peerName = call.peerID
	}
	direction := "outgoing"
	if call.incoming {
		direction = "incoming"
	}
	connected := final.StartedAt != nil
	var duration uint64
	if connected {
		duration = final.DurationSeconds
	}
	return HistoryRecord{
		ID:     call.id,
		Type:   "voice",
		RoomID: call.roomID,
		Participants: []Participant{
			{UserID: self, Name: selfName, Avatar: selfAvatar},
			{UserID: call.peerID, Name: peerName, Avatar: prev.PeerAvatar},
		},
		Timestamp:    util.Millis(call.createdAt),
		EndTimestamp: util.Millis(end),
		Duration:     duration,
		Direction:    direction,
		Status:       historyStatus(connected, final.EndedReason),
		Metadata: HistoryMetadata{
			ConnectionState: prev.ConnectionState.String(),
			EndReason:       final.EndedReason,
			PacketsReceived: stats.PacketsReceived,
			BytesReceived:   stats.BytesReceived,
		},
	}
}

func (c *Controller) resolve(call *activeCall, r result) {
	for _, w := range call.waiters {
		w <- r
	}
	call.waiters = nil
}

func (c *Controller) commit(next CallState) {
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	snap := next.clone()
	c.subMu.Lock()
	for ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	c.subMu.Unlock()
}

func (c *Controller) arm(call *activeCall, d time.Duration) {
	if d <= 0 {
		c.disarm(call)
		return
	}
	call.timerToken++
	callID, token := call.id, call.timerToken
	c.timer.Arm(d, func() { c.post(timerExpired{callID: callID, token: token}) })
}

func (c *Controller) disarm(call *activeCall) {
	c.timer.Disarm()
	call.timerToken++
}

func (c *Controller) startTicker(call *activeCall) {
	stop := make(chan struct{})
	call.tickStop = stop
	callID := call.id
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if !c.post(durationTick{callID: callID}) {
					return
				}
			}
		}
	}()
}

func (c *Controller) hooks(callID string, b *Batcher) EngineHooks {
	return EngineHooks{
		OnLocalCandidate: b.Offer,
		OnTransportState: func(s TransportState) { c.post(transportChanged{callID: callID, state: s}) },
		OnSignalingState: func(s SDPState) { c.post(signalingChanged{callID: callID, state: s}) },
	}
}

func (c *Controller) newBatcher(call *activeCall) *Batcher {
	callID, roomID, partyID := call.id, call.roomID, call.partyID
	return NewBatcher(c.cfg.CandidateBatch, func(batch []signal.Candidate) {
		if !c.isLive(callID) {
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.SendTimeout)
		defer cancel()
		err := c.transport.Send(ctx, roomID, signal.Candidates{CallID: callID, PartyID: partyID, Candidates: batch})
		if err != nil {
			log.Warnf("CALL [%s]: send %d candidates: %v", callID, len(batch), err)
		}
	})
}

func (c *Controller) sendAsync(call *activeCall, kind string, m signal.Message) {
	callID, roomID := call.id, call.roomID
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.SendTimeout)
		defer cancel()
		err := c.transport.Send(ctx, roomID, m)
		c.post(sendDone{callID: callID, kind: kind, err: err})
	}()
}

func (c *Controller) sendHangup(call *activeCall, reason string) {
	m := signal.Hangup{CallID: call.id, PartyID: call.partyID, Reason: reason}
	roomID := call.roomID
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
		defer cancel()
		if err := c.transport.Send(ctx, roomID, m); err != nil {
			log.Warnf("CALL [%s]: hangup not delivered: %v", m.CallID, err)
		}
	}()
}

func (c *Controller) closeEngine(eng Negotiator) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := eng.Close(); err != nil {
			log.Debugf("CALL: engine close: %v", err)
		}
	}()
}

func (c *Controller) isLive(callID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Active && c.state.CallID == callID
}

func (c *Controller) wasEnded(callID string) bool {
	for _, id := range c.ended.Snapshot() {
		if id == callID {
			return true
		}
	}
	return false
}

func (c *Controller) profile(roomID, userID string) (name, avatar string) {
	if c.members == nil {
		return "", ""
	}
	m, ok := c.members.Member(roomID, userID)
	if !ok {
		return "", ""
	}
	return m.DisplayName, m.AvatarURL
}
