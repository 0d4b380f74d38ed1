package config

type WorkerKeyStruct struct {
	PersistSessionEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSessionEventsQueue: "persist_session_events_queue",
}
