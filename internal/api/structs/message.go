package structs

import "time"

// Result is the envelope every diagnostic route answers with. A nil Result encodes as
// null.
type Result struct {
	Result interface{} `json:"result"`
}

type Success struct {
	Success bool `json:"success"`
}

// SentMessage is one entry of a user's send history.
type SentMessage struct {
	ID          string    `json:"id"`
	Destination int       `json:"destination"`
	Circuit     []int     `json:"circuit"`
	Message     string    `json:"message"`
	TimeSent    time.Time `json:"timeSent"`
}

type ReceivedMessage struct {
	Message      string    `json:"message"`
	TimeReceived time.Time `json:"timeReceived"`
}
