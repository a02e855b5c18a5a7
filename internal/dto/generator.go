package dto

// RunAcceptedResponse is returned when a generation run is queued.
type RunAcceptedResponse struct {
	RunID     string `json:"runId"`
	StatusURL string `json:"statusUrl"`
}

// ExportRequest selects the export format of a timetable.
type ExportRequest struct {
	Format string `form:"format"`
}
