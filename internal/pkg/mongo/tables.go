package mongo

const (
	store        = "meetStore"
	jobTable     = "job"
	segmentTable = "segment"
	profileTable = "profile"
	notesTable   = "notes"
)

var indexData = []IndexData{
	newIndexData(jobTable, "ID", true),
	newIndexData(jobTable, "status", false),
	newIndexData(segmentTable, "ID", true),
	newIndexData(profileTable, "ID", true),
	newIndexData(notesTable, "ID", true)}
