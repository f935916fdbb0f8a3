package contracts

const (
	ToolNameSlicer  = "slicer"
	ContractVersion = "v1"
)

type OperationID string

const (
	OperationSlice        OperationID = "slice"
	OperationServicesList OperationID = "services.list"
	OperationHistoryList  OperationID = "history.list"
)

type OperationDescriptor struct {
	ID          OperationID    `json:"id"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// SliceInput mirrors slice(program, config, outputDirectory?).
type SliceInput struct {
	Program         string   `json:"program"`
	Config          string   `json:"config"`
	OutputDirectory string   `json:"outputDirectory,omitempty"`
	Services        []string `json:"services,omitempty"`
}

// SliceOutput is deliberately empty: success carries no data.
type SliceOutput struct{}

type ServicesListInput struct {
	Program string `json:"program"`
}

type ServicesListOutput struct {
	Services []string `json:"services"`
}

type HistoryListInput struct {
	Limit int `json:"limit,omitempty"`
}

type RunSummary struct {
	ID        string   `json:"id"`
	StartedAt string   `json:"started_at"`
	Program   string   `json:"program"`
	OutputDir string   `json:"output_dir,omitempty"`
	Status    string   `json:"status"`
	ErrorCode string   `json:"error_code,omitempty"`
	Services  []string `json:"services,omitempty"`
}

type HistoryListOutput struct {
	Runs []RunSummary `json:"runs"`
}

// ToolError is the fault returned to remote callers. Code names the error
// class, e.g. UNDECLARED_SERVICE.
type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ToolError) Error() string {
	return e.Message
}

const (
	ErrorInvalidArgument = "INVALID_ARGUMENT"
	ErrorIO              = "IO_ERROR"
	ErrorInternal        = "INTERNAL_ERROR"
	ErrorUnavailable     = "UNAVAILABLE"
	ErrorRateLimited     = "RATE_LIMITED"
)
