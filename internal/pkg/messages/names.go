package messages

const (
	// JobCompleted queue, consumed by post pipeline services
	JobCompleted string = "JobCompleted"
	// JobStatusChange queue, feeds websocket subscribers
	JobStatusChange string = "JobStatusChange"
)
