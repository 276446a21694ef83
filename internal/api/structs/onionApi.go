package structs

// MessageBody carries an onion (or, for users, the final message) in base64.
type MessageBody struct {
	Message string `json:"message"`
}

type SendMessageBody struct {
	Message           string `json:"message"`
	DestinationUserID int    `json:"destinationUserId"`
}
