package model

import "encoding/json"

// Command is the discriminator carried by every relay frame.
type Command string

func (c Command) String() string {
	return string(c)
}

const (
	// inbound
	WifiList Command = "EVENT_APO_WIFI_LIST"
	State    Command = "EVENT_APO_STATE"
	Response Command = "RESPONSE"

	// outbound
	StartCook Command = "CMD_APO_START"
	StopCook  Command = "CMD_APO_STOP"
)

// StatusOK is the only response status the relay is known to send for an accepted command.
const StatusOK = "ok"

// Frame is used to know which handler a message belongs to.
type Frame struct {
	Command   Command         `json:"command"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ################################
// Command.WifiList

type WifiListEntry struct {
	CookerID string `json:"cookerId"`
	Name     string `json:"name"`
	PairedAt string `json:"pairedAt"`
	Type     string `json:"type"`
}

// ################################

// ################################
// Command.State

type StatePayload struct {
	CookerID string    `json:"cookerId"`
	State    OvenState `json:"state"`
	Type     string    `json:"type"`
}

// ################################

// ################################
// Command.Response

type ResponsePayload struct {
	Status string `json:"status"`
}

type CommandResponse struct {
	Command   Command         `json:"command"`
	RequestID string          `json:"requestId"`
	Payload   ResponsePayload `json:"payload"`
	Raw       json.RawMessage `json:"-"`
}

// ################################

// ################################
// Command.StartCook / Command.StopCook

// Envelope wraps every outbound command.
type Envelope struct {
	Command   Command `json:"command"`
	Payload   any     `json:"payload,omitempty"`
	RequestID string  `json:"requestId"`
}

type StartCookPayload struct {
	CookID string  `json:"cookId"`
	Stages []Stage `json:"stages"`
}

type StartCookRequest struct {
	Payload StartCookPayload `json:"payload"`
	Type    Command          `json:"type"`
	ID      string           `json:"id"`
}

type StopCookRequest struct {
	Type Command `json:"type"`
	ID   string  `json:"id"`
}

// ################################
