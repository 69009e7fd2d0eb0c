package status

//Status represents meeting processing job status
type Status int

const (
	//Queued - job waits in line for the worker
	Queued Status = iota + 1
	//Processing - the worker runs the pipeline for the job
	Processing
	//Completed value
	Completed
	//Failed value
	Failed
)

var (
	statusName = map[Status]string{Queued: "QUEUED", Processing: "PROCESSING",
		Completed: "COMPLETED", Failed: "FAILED"}
	nameStatus = map[string]Status{"QUEUED": Queued, "PROCESSING": Processing,
		"COMPLETED": Completed, "FAILED": Failed}
)

//Name returns status as string
func Name(st Status) string {
	return statusName[st]
}

//From parses status string
func From(st string) Status {
	return nameStatus[st]
}

//IsTerminal indicates the job will not change state anymore
func IsTerminal(st Status) bool {
	return st == Completed || st == Failed
}
