package config

// WorkerKeyStruct names the Redis list queues consumed by background workers.
type WorkerKeyStruct struct {
	PersistViolationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistViolationsQueue: "persist_violations_queue",
}
