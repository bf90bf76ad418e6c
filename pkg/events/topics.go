package events

const (
	TopicSessionLifecycle = "ailink:events:session:lifecycle"
	TopicGameState        = "ailink:events:game:state"
	TopicGameCommand      = "ailink:events:game:command"
	TopicFrameCaptured    = "ailink:events:game:frame"
	TopicEpisodeFinished  = "ailink:events:episode:finished"
)

// Session lifecycle event types carried on TopicSessionLifecycle.
const (
	SessionConnected    = "session.connected"
	SessionDisconnected = "session.disconnected"
)
