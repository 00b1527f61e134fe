package ipc

// Commands accepted by the session owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandCancel = "cancel"
	CommandClear  = "clear"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK         bool    `json:"ok"`
	State      string  `json:"state,omitempty"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	Song       string  `json:"song,omitempty"`
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}
