package tongyi

const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusCanceled  = "CANCELED"
	statusUnknown   = "UNKNOWN"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type textRequest struct {
	Model      string         `json:"model"`
	Input      textInput      `json:"input"`
	Parameters textParameters `json:"parameters"`
}

type textInput struct {
	Messages []message `json:"messages"`
}

type textParameters struct {
	ResultFormat string `json:"result_format"`
}

type textResponse struct {
	RequestID string `json:"request_id"`
	Output    struct {
		Choices []struct {
			FinishReason string  `json:"finish_reason"`
			Message      message `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}

type imageRequest struct {
	Model      string          `json:"model"`
	Input      imageInput      `json:"input"`
	Parameters imageParameters `json:"parameters"`
}

type imageInput struct {
	Prompt   string `json:"prompt"`
	RefImage string `json:"ref_img,omitempty"`
}

type imageParameters struct {
	Size        string  `json:"size"`
	N           int     `json:"n"`
	Seed        int64   `json:"seed,omitempty"`
	RefStrength float64 `json:"ref_strength,omitempty"`
}

type taskResponse struct {
	RequestID string     `json:"request_id"`
	Code      string     `json:"code,omitempty"`
	Output    taskOutput `json:"output"`
}

type taskOutput struct {
	TaskID     string       `json:"task_id"`
	TaskStatus string       `json:"task_status"`
	Results    []taskResult `json:"results"`
	Code       string       `json:"code,omitempty"`
	Message    string       `json:"message,omitempty"`
}

type taskResult struct {
	URL     string `json:"url,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}
