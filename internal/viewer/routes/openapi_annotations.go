// internal/viewer/routes/openapi_annotations.go
//
// Documentation stubs for swag. The handlers live in call.go and api_logs.go;
// these functions exist only to carry the annotations that swag init turns
// into internal/viewer/docs.

package routes

//	@title			roomcall local API
//	@version		1.0
//	@description	Local control surface for a roomcall peer: start, answer and hang up calls, watch call state, read call history and logs.
//	@BasePath		/

// callStartRequest is the body for POST /api/call/start.
type callStartRequest struct {
	RoomID string `json:"room_id" example:"!lobby"`
	PeerID string `json:"peer_id" example:"@bob"`
}

// callStartResponse is returned by POST /api/call/start.
type callStartResponse struct {
	Status string `json:"status"  example:"started"`
	CallID string `json:"call_id" example:"c0a8012e-5b1f-4f7e-9d8a-3c2b1a0f9e8d"`
}

// callAnswerResponse is returned by POST /api/call/answer.
type callAnswerResponse struct {
	Status string `json:"status"  example:"answered"`
	CallID string `json:"call_id" example:"c0a8012e-5b1f-4f7e-9d8a-3c2b1a0f9e8d"`
}

// callHangupRequest is the optional body for POST /api/call/hangup.
type callHangupRequest struct {
	Reason string `json:"reason" example:"user_hangup"`
}

// callState mirrors call.CallState for documentation.
type callState struct {
	Active          bool   `json:"active"`
	Incoming        bool   `json:"incoming"`
	RoomID          string `json:"room_id,omitempty"    example:"!lobby"`
	PeerID          string `json:"peer_id,omitempty"    example:"@bob"`
	PeerName        string `json:"peer_name,omitempty"  example:"Bob"`
	PeerAvatar      string `json:"peer_avatar,omitempty"`
	CallID          string `json:"call_id,omitempty"`
	StartedAt       string `json:"started_at,omitempty" example:"2026-10-15T09:30:00Z"`
	DurationSeconds uint64 `json:"duration_seconds"     example:"42"`
	ConnectionState string `json:"connection_state"     example:"Connected" enums:"Idle,Calling,Ringing,Connecting,Connected,Failed,Ended"`
	EndedReason     string `json:"ended_reason,omitempty" example:"user_hangup"`
}

// historyRecord mirrors call.HistoryRecord for documentation.
type historyRecord struct {
	ID           string `json:"id"`
	Type         string `json:"type"         example:"voice"`
	RoomID       string `json:"roomId"       example:"!lobby"`
	Participants []struct {
		UserID string `json:"userId" example:"@bob"`
		Name   string `json:"name"   example:"Bob"`
		Avatar string `json:"avatar,omitempty"`
	} `json:"participants"`
	Timestamp    int64  `json:"timestamp"    example:"1760520600000"`
	EndTimestamp int64  `json:"endTimestamp" example:"1760520642000"`
	Duration     uint64 `json:"duration"     example:"42"`
	Direction    string `json:"direction"    example:"outgoing" enums:"outgoing,incoming"`
	Status       string `json:"status"       example:"completed" enums:"completed,missed,failed"`
	Metadata     struct {
		ConnectionState string `json:"connectionState" example:"Connected"`
		EndReason       string `json:"endReason"       example:"user_hangup"`
		PacketsReceived uint64 `json:"packetsReceived" example:"2100"`
		BytesReceived   uint64 `json:"bytesReceived"   example:"168000"`
	} `json:"metadata"`
}

// statusOK is the generic {"status":"..."} response body.
type statusOK struct {
	Status string `json:"status" example:"hung_up"`
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error" example:"start call: a call is already active"`
}

// logEntry mirrors viewer.LogEntry.
type logEntry struct {
	TS     string `json:"ts"     example:"2026-10-15T09:30:00Z"`
	Level  string `json:"level"  example:"INFO"`
	Logger string `json:"logger" example:"call"`
	Msg    string `json:"msg"    example:"CALL [c0a8...]: invite sent"`
}

// ── Call ─────────────────────────────────────────────────────────────────────

// swagCallStart is a documentation stub for POST /api/call/start.
//
//	@Summary	Start an outgoing call
//	@Description	Calls peer_id in room_id, or the first other member of the room when peer_id is empty.\nReturns once the invite has been sent. At most one call exists at a time.
//	@Tags		call
//	@Accept		json
//	@Produce	json
//	@Param		body	body		callStartRequest	true	"Start request"
//	@Success	200		{object}	callStartResponse
//	@Failure	400		{object}	errorBody	"missing room_id"
//	@Failure	403		{object}	errorBody	"microphone unavailable"
//	@Failure	404		{object}	errorBody	"no peer in room"
//	@Failure	409		{object}	errorBody	"a call is already active"
//	@Failure	502		{object}	errorBody	"invite could not be sent"
//	@Router		/api/call/start [post]
func swagCallStart() {}

// swagCallAnswer is a documentation stub for POST /api/call/answer.
//
//	@Summary	Answer the ringing call
//	@Tags		call
//	@Produce	json
//	@Success	200	{object}	callAnswerResponse
//	@Failure	409	{object}	errorBody	"no incoming call"
//	@Router		/api/call/answer [post]
func swagCallAnswer() {}

// swagCallHangup is a documentation stub for POST /api/call/hangup.
//
//	@Summary	Hang up or decline the current call
//	@Description	No-op when idle. reason defaults to user_hangup.
//	@Tags		call
//	@Accept		json
//	@Produce	json
//	@Param		body	body		callHangupRequest	false	"Hangup request"
//	@Success	200		{object}	statusOK
//	@Router		/api/call/hangup [post]
func swagCallHangup() {}

// swagCallState is a documentation stub for GET /api/call/state.
//
//	@Summary	Current call state
//	@Tags		call
//	@Produce	json
//	@Success	200	{object}	callState
//	@Router		/api/call/state [get]
func swagCallState() {}

// swagCallHistory is a documentation stub for GET /api/call/history.
//
//	@Summary	Call history, newest first
//	@Tags		call
//	@Produce	json
//	@Param		limit	query		int	false	"Maximum records (0 = all)"
//	@Success	200		{array}		historyRecord
//	@Router		/api/call/history [get]
func swagCallHistory() {}

// swagCallWS is a documentation stub for GET /api/call/ws.
//
//	@Summary	WebSocket stream of call state
//	@Description	Sends the current state on connect, then one JSON callState frame per change.
//	@Tags		call
//	@Success	101	{object}	callState
//	@Router		/api/call/ws [get]
func swagCallWS() {}

// ── Logs ─────────────────────────────────────────────────────────────────────

// swagLogs is a documentation stub for GET /api/logs.
//
//	@Summary	Recent log lines
//	@Tags		logs
//	@Produce	json
//	@Param		limit	query		int		false	"Newest N entries (0 = all)"
//	@Param		level	query		string	false	"Only this level, e.g. WARN"
//	@Success	200		{array}		logEntry
//	@Router		/api/logs [get]
func swagLogs() {}

// swagLogsStream is a documentation stub for GET /api/logs/stream.
//
//	@Summary	SSE tail of new log lines
//	@Tags		logs
//	@Produce	text/event-stream
//	@Success	200	{string}	string	"SSE stream"
//	@Router		/api/logs/stream [get]
func swagLogsStream() {}
