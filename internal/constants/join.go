package constants

// JoinState is a state of the network join state machine.
type JoinState string

const (
	JoinStateRestoring JoinState = "restoring"
	JoinStateJoining   JoinState = "joining"
	JoinStateJoined    JoinState = "joined"
	JoinStateTimedOut  JoinState = "timed_out"
)

// JoinEvent drives JoinState transitions.
type JoinEvent string

const (
	// JoinEventSessionConfirmed: the restored session is accepted by the network layer.
	JoinEventSessionConfirmed JoinEvent = "session_confirmed"
	// JoinEventSessionMissing: nothing usable was restored, a handshake is required.
	JoinEventSessionMissing JoinEvent = "session_missing"
	// JoinEventJoinAccepted: the network layer reports membership after a handshake.
	JoinEventJoinAccepted JoinEvent = "join_accepted"
	// JoinEventDeadlineExceeded: the join timeout elapsed while still joining.
	JoinEventDeadlineExceeded JoinEvent = "deadline_exceeded"
)
