package structs

// RelayDescriptor is what the registry knows about a relay.
type RelayDescriptor struct {
	ID        int    `json:"nodeId"`
	PublicKey string `json:"pubKey"`
}

type RegisterNodeBody = RelayDescriptor

type GetNodeRegistryBody struct {
	Nodes []RelayDescriptor `json:"nodes"`
}
