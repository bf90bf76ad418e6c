package logger

const (
	Main       = "main"
	Listener   = "listener"
	Session    = "session"
	Controller = "controller"
	Recorder   = "recorder"
	Monitor    = "monitor"
	Exporter   = "exporter"
	API        = "api"
	Watchdog   = "watchdog"
	Events     = "events"
	GameConfig = "gameconfig"
)
