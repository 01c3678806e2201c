package http

type ErrorResponse struct {
	Error string `json:"error"`
}

type ICEServerItem struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type ICEServersResponse struct {
	ICEServers []ICEServerItem `json:"iceServers"`
}
